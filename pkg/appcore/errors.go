package appcore

import "fmt"

// ValidationError rejects bad pool or search arguments.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}
func (e *ValidationError) TypeName() string  { return "ValidationError" }
func (e *ValidationError) ErrorCode() string { return "INVALID_ARGUMENT" }
func (e *ValidationError) Context() map[string]string {
	return map[string]string{"field": e.Field}
}
func (e *ValidationError) SuggestedAction() string { return "fix the argument and retry" }

// TextKeyError is returned when a language file lacks the requested key.
type TextKeyError struct {
	Key  string
	Lang string
}

func (e *TextKeyError) Error() string {
	return fmt.Sprintf("Key '%s' not found in language '%s'", e.Key, e.Lang)
}
func (e *TextKeyError) TypeName() string { return "KeyError" }

// ExitCodeError is returned by CommandTask runs that exit non-zero.
type ExitCodeError struct {
	Command  string
	ExitCode int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}
func (e *ExitCodeError) TypeName() string { return "CalledProcessError" }
