package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	require.True(t, isRetryableError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	require.True(t, isRetryableError(fmt.Errorf("wrapped: %w", errors.New("SQLITE_BUSY"))))
	require.False(t, isRetryableError(errors.New("UNIQUE constraint failed: global_vars.key")))
	require.False(t, isRetryableError(&VarExistsError{Key: "a"}))
}

func TestRetryWithBackoff_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(func() error {
		calls++
		return &VarNotFoundError{Key: "missing"}
	})
	require.ErrorIs(t, err, ErrVarNotFound)
	require.Equal(t, 1, calls)
}
