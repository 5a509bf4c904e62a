package files

import "fmt"

// NotADirectoryError is returned when a directory operation gets a file.
type NotADirectoryError struct{ Path string }

func (e *NotADirectoryError) Error() string    { return "not a directory: " + e.Path }
func (e *NotADirectoryError) TypeName() string { return "NotADirectoryError" }

// ExtensionError is returned when a document helper gets the wrong suffix.
type ExtensionError struct {
	Path string
	Want []string
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("file extension of %s is not one of %v", e.Path, e.Want)
}
func (e *ExtensionError) TypeName() string { return "ExtensionError" }

// LockBusyError is returned by TryLock when another holder has the lock.
type LockBusyError struct {
	Path string
	Mode LockMode
}

func (e *LockBusyError) Error() string {
	return fmt.Sprintf("%s lock on %s is held elsewhere", e.Mode, e.Path)
}
func (e *LockBusyError) TypeName() string  { return "LockBusyError" }
func (e *LockBusyError) ErrorCode() string { return "LOCK_BUSY" }
func (e *LockBusyError) Context() map[string]string {
	return map[string]string{"path": e.Path, "mode": e.Mode.String()}
}
func (e *LockBusyError) SuggestedAction() string { return "retry later or use Lock to wait" }
