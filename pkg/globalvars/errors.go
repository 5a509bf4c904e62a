package globalvars

import (
	"errors"
	"fmt"
)

var (
	ErrKeyExists   = errors.New("key already exists")
	ErrKeyNotFound = errors.New("key not found")
	ErrEmptyKey    = errors.New("key cannot be empty")
)

// KeyExistsError is returned by Set without overwrite when the key is live.
type KeyExistsError struct{ Key string }

func (e *KeyExistsError) Error() string {
	return "Key '" + e.Key + "' already exists. Use overwrite to replace it."
}
func (e *KeyExistsError) TypeName() string  { return "KeyExistsError" }
func (e *KeyExistsError) ErrorCode() string { return "KEY_EXISTS" }
func (e *KeyExistsError) Context() map[string]string {
	return map[string]string{"key": e.Key}
}
func (e *KeyExistsError) SuggestedAction() string { return "retry with overwrite enabled" }
func (e *KeyExistsError) Is(target error) bool    { return target == ErrKeyExists }

// KeyNotFoundError is returned for missing or expired keys.
type KeyNotFoundError struct{ Key string }

func (e *KeyNotFoundError) Error() string     { return "Key '" + e.Key + "' not found." }
func (e *KeyNotFoundError) TypeName() string  { return "KeyNotFoundError" }
func (e *KeyNotFoundError) ErrorCode() string { return "KEY_NOT_FOUND" }
func (e *KeyNotFoundError) Context() map[string]string {
	return map[string]string{"key": e.Key}
}
func (e *KeyNotFoundError) SuggestedAction() string { return "list keys to see what is set" }
func (e *KeyNotFoundError) Is(target error) bool    { return target == ErrKeyNotFound }

// EmptyKeyError rejects blank keys on every keyed operation.
type EmptyKeyError struct{}

func (e *EmptyKeyError) Error() string              { return "key cannot be empty" }
func (e *EmptyKeyError) TypeName() string           { return "ValueError" }
func (e *EmptyKeyError) ErrorCode() string          { return "EMPTY_KEY" }
func (e *EmptyKeyError) Context() map[string]string { return map[string]string{} }
func (e *EmptyKeyError) SuggestedAction() string    { return "pass a non-empty key" }
func (e *EmptyKeyError) Is(target error) bool       { return target == ErrEmptyKey }

// BroadcastError means a write was committed to the backend but peers were
// not notified. Revision is the committed revision.
type BroadcastError struct {
	Revision int64
	Err      error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("revision %d committed but not broadcast: %v", e.Revision, e.Err)
}
func (e *BroadcastError) Unwrap() error { return e.Err }
