package globalvars

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbot223/tbotcore/internal/store"
)

func newSQLiteStores(t *testing.T, opts ...Option) (*Store, *Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared.db")

	open := func() *Store {
		db, err := store.InitDBWithPath(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		s := New(append([]Option{WithBackend(NewSQLiteBackend(db))}, opts...)...)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	return open(), open()
}

func TestSQLiteBackend_ValuesRoundTripAsJSON(t *testing.T) {
	a, _ := newSQLiteStores(t)

	require.True(t, a.Set("call_var", []int{1, 2, 3}).Success())
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, a.Get("call_var").Data())
}

func TestSQLiteBackend_InsertIfAbsentAcrossStores(t *testing.T) {
	a, b := newSQLiteStores(t)

	require.True(t, a.Set("owner", "a").Success())
	r := b.Set("owner", "b")
	assert.Equal(t, "KeyExistsError", errType(t, r))

	require.True(t, b.Set("owner", "b", WithOverwrite(true)).Success())
	require.True(t, a.Sync(context.Background()).Success())
	assert.Equal(t, "b", a.Get("owner").Data())
}

func TestSQLiteBackend_DeleteAndClearAreShared(t *testing.T) {
	a, b := newSQLiteStores(t)

	require.True(t, a.Set("x", 1).Success())
	require.True(t, a.Set("y", 2).Success())

	assert.Equal(t, "KeyNotFoundError", errType(t, b.Delete("missing")))
	require.True(t, b.Delete("x").Success())
	assert.Equal(t, "KeyNotFoundError", errType(t, a.Delete("x")))

	r := b.Clear()
	require.True(t, r.Success())
	assert.Equal(t, 1, r.Data())

	require.True(t, a.Sync(context.Background()).Success())
	assert.Equal(t, []string{}, a.ListKeys().Data())
}

func TestSQLiteBackend_PollingPicksUpRemoteWrites(t *testing.T) {
	a, b := newSQLiteStores(t, WithSyncInterval(20*time.Millisecond))
	ctx := context.Background()

	require.True(t, a.Start(ctx).Success())
	require.True(t, b.Start(ctx).Success())

	require.True(t, a.Set("shared", map[string]any{"n": 1}).Success())
	require.Eventually(t, func() bool {
		return b.Get("shared").Success()
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, map[string]any{"n": float64(1)}, b.Get("shared").Data())

	require.True(t, a.Delete("shared").Success())
	require.Eventually(t, func() bool {
		return !b.Get("shared").Success()
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSQLiteBackend_TTLIsShared(t *testing.T) {
	a, b := newSQLiteStores(t)

	require.True(t, a.Set("short", "v", WithTTL(50*time.Millisecond)).Success())
	require.True(t, b.Sync(context.Background()).Success())
	assert.True(t, b.Get("short").Success())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, b.Get("short").Success())
	require.True(t, b.Set("short", "again").Success())
}
