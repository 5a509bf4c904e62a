package globalvars

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

func errType(t *testing.T, r result.Result) string {
	t.Helper()
	require.False(t, r.Success())
	info, ok := result.DataAs[tracker.ErrorInfo](r)
	require.True(t, ok)
	return info.Error.Type
}

func TestSetAndGet(t *testing.T) {
	s := New()

	require.True(t, s.Set("test_var", 42).Success())
	r := s.Get("test_var")
	require.True(t, r.Success())
	assert.Equal(t, 42, r.Data())

	require.True(t, s.Set("test_var", 100, WithOverwrite(true)).Success())
	r = s.Get("test_var")
	require.True(t, r.Success())
	assert.Equal(t, 100, r.Data())
}

func TestOverwriteProtection(t *testing.T) {
	s := New()
	require.True(t, s.Set("protected_var", "initial_value").Success())

	r := s.Set("protected_var", "new_value", WithOverwrite(false))
	assert.Equal(t, "KeyExistsError", errType(t, r))
	text, _ := r.Err()
	assert.Equal(t, "KeyExistsError :Key 'protected_var' already exists. Use overwrite to replace it.", text)

	r = s.Get("protected_var")
	require.True(t, r.Success())
	assert.Equal(t, "initial_value", r.Data())
}

func TestDelete(t *testing.T) {
	s := New()
	require.True(t, s.Set("delete_var", "to be deleted").Success())
	require.True(t, s.Delete("delete_var").Success())
	assert.Equal(t, "KeyNotFoundError", errType(t, s.Get("delete_var")))
	assert.Equal(t, "KeyNotFoundError", errType(t, s.Delete("delete_var")))
}

func TestClearAndList(t *testing.T) {
	s := New()
	require.True(t, s.Set("var2", 2).Success())
	require.True(t, s.Set("var1", 1).Success())

	r := s.ListKeys()
	require.True(t, r.Success())
	assert.Equal(t, []string{"var1", "var2"}, r.Data())

	r = s.Clear()
	require.True(t, r.Success())
	assert.Equal(t, 2, r.Data())
	assert.False(t, s.Get("var1").Success())
	assert.False(t, s.Get("var2").Success())

	r = s.ListKeys()
	require.True(t, r.Success())
	assert.Equal(t, []string{}, r.Data())
}

func TestExists(t *testing.T) {
	s := New()
	r := s.Exists("exists_var")
	require.True(t, r.Success())
	assert.Equal(t, false, r.Data())

	require.True(t, s.Set("exists_var", "exists").Success())
	r = s.Exists("exists_var")
	require.True(t, r.Success())
	assert.Equal(t, true, r.Data())
}

func TestEmptyKeyIsRejected(t *testing.T) {
	s := New()
	for name, r := range map[string]result.Result{
		"set":    s.Set("", "empty_key_value"),
		"get":    s.Get(""),
		"delete": s.Delete("  "),
		"exists": s.Exists(""),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "ValueError", errType(t, r))
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))

	require.True(t, s.Set("session", "abc", WithTTL(time.Minute)).Success())
	require.True(t, s.Set("forever", "x").Success())
	assert.True(t, s.Get("session").Success())

	now = now.Add(time.Minute)
	assert.Equal(t, "KeyNotFoundError", errType(t, s.Get("session")))
	assert.Equal(t, false, s.Exists("session").Data())
	assert.Equal(t, []string{"forever"}, s.ListKeys().Data())

	require.True(t, s.Set("session", "new").Success(), "expired key counts as absent")
}

func TestConcurrentSetsHaveOneWinnerPerKey(t *testing.T) {
	s := New()
	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = map[string]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for k := 0; k < 10; k++ {
				key := fmt.Sprintf("k%d", k)
				if s.Set(key, i).Success() {
					mu.Lock()
					wins[key]++
					mu.Unlock()
				}
				_ = s.Get(key)
				_ = s.ListKeys()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, wins, 10)
	for k, n := range wins {
		assert.Equal(t, 1, n, k)
	}
}

func TestApply_IgnoresStaleChanges(t *testing.T) {
	s := New()

	s.Apply(Change{Kind: ChangePut, Key: "a", Value: []byte(`"v5"`), Revision: 5})
	s.Apply(Change{Kind: ChangePut, Key: "a", Value: []byte(`"v3"`), Revision: 3})
	assert.Equal(t, "v5", s.Get("a").Data())

	s.Apply(Change{Kind: ChangeDelete, Key: "a", Revision: 7})
	s.Apply(Change{Kind: ChangePut, Key: "a", Value: []byte(`"v6"`), Revision: 6})
	assert.False(t, s.Get("a").Success(), "put older than the delete must not resurrect the key")

	s.Apply(Change{Kind: ChangePut, Key: "b", Value: []byte(`1`), Revision: 8})
	s.Apply(Change{Kind: ChangeClear, Revision: 9})
	s.Apply(Change{Kind: ChangePut, Key: "c", Value: []byte(`2`), Revision: 9})
	assert.Equal(t, []string{}, s.ListKeys().Data())

	s.Apply(Change{Kind: ChangePut, Key: "c", Value: []byte(`{"n":2}`), Revision: 10})
	assert.Equal(t, map[string]any{"n": float64(2)}, s.Get("c").Data())
}

func TestSyncWithoutBackendIsNoop(t *testing.T) {
	s := New()
	require.True(t, s.Set("a", 1).Success())
	require.True(t, s.Sync(t.Context()).Success())
	require.True(t, s.Start(t.Context()).Success())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, s.Get("a").Data())
}
