package store

import (
	"errors"

	"github.com/tbot223/tbotcore/internal/models"
)

// RecoverableError is an alias for models.RecoverableError.
type RecoverableError = models.RecoverableError

var (
	// ErrVarExists is returned when an insert-if-absent write finds a live key.
	ErrVarExists = errors.New("variable already exists")
	// ErrVarNotFound is returned for missing or expired keys.
	ErrVarNotFound = errors.New("variable not found")
)

// VarExistsError carries the conflicting key.
type VarExistsError struct {
	Key string
}

func (e *VarExistsError) Error() string     { return "variable already exists: " + e.Key }
func (e *VarExistsError) ErrorCode() string { return "VAR_EXISTS" }
func (e *VarExistsError) Context() map[string]string {
	return map[string]string{"key": e.Key}
}
func (e *VarExistsError) SuggestedAction() string {
	return "tbotcore vars set --key " + e.Key + " --value <value> --overwrite"
}
func (e *VarExistsError) Is(target error) bool { return target == ErrVarExists }

// VarNotFoundError carries the missing key.
type VarNotFoundError struct {
	Key string
}

func (e *VarNotFoundError) Error() string     { return "variable not found: " + e.Key }
func (e *VarNotFoundError) ErrorCode() string { return "VAR_NOT_FOUND" }
func (e *VarNotFoundError) Context() map[string]string {
	return map[string]string{"key": e.Key}
}
func (e *VarNotFoundError) SuggestedAction() string { return "tbotcore vars list" }
func (e *VarNotFoundError) Is(target error) bool    { return target == ErrVarNotFound }
