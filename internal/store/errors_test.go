package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarErrors_Is(t *testing.T) {
	exists := &VarExistsError{Key: "k"}
	missing := &VarNotFoundError{Key: "k"}

	assert.ErrorIs(t, exists, ErrVarExists)
	assert.ErrorIs(t, missing, ErrVarNotFound)
	assert.False(t, errors.Is(exists, ErrVarNotFound))
	assert.False(t, errors.Is(missing, ErrVarExists))

	wrapped := fmt.Errorf("put: %w", exists)
	assert.ErrorIs(t, wrapped, ErrVarExists)
	var target *VarExistsError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "k", target.Key)
}

func TestVarErrors_RecoverableFields(t *testing.T) {
	var re RecoverableError = &VarExistsError{Key: "cfg"}
	assert.Equal(t, "VAR_EXISTS", re.ErrorCode())
	assert.Equal(t, map[string]string{"key": "cfg"}, re.Context())
	assert.Contains(t, re.SuggestedAction(), "--overwrite")
	assert.Equal(t, "variable already exists: cfg", re.Error())

	re = &VarNotFoundError{Key: "cfg"}
	assert.Equal(t, "VAR_NOT_FOUND", re.ErrorCode())
	assert.Equal(t, "tbotcore vars list", re.SuggestedAction())
}
