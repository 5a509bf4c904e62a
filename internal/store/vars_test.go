package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDBWithPath(filepath.Join(t.TempDir(), "vars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutVar_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	rev1, err := PutVar(ctx, db, VarWrite{Key: "test_var", Value: []byte("42"), Origin: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), rev1)

	_, err = PutVar(ctx, db, VarWrite{Key: "test_var", Value: []byte("100"), Origin: "a"})
	var exists *VarExistsError
	require.ErrorAs(t, err, &exists)
	require.Equal(t, "test_var", exists.Key)
	require.Equal(t, "VAR_EXISTS", exists.ErrorCode())

	v, err := GetVar(ctx, db, "test_var")
	require.NoError(t, err)
	assert.Equal(t, "42", string(v.Value))
	assert.Equal(t, rev1, v.Revision)
	assert.Nil(t, v.ExpiresAt)

	rev2, err := PutVar(ctx, db, VarWrite{Key: "test_var", Value: []byte("100"), Origin: "b", Overwrite: true})
	require.NoError(t, err)
	require.Greater(t, rev2, rev1)

	v, err = GetVar(ctx, db, "test_var")
	require.NoError(t, err)
	assert.Equal(t, "100", string(v.Value))
	assert.Equal(t, "b", v.Origin)
}

func TestGetVar_Missing(t *testing.T) {
	_, err := GetVar(context.Background(), newTestDB(t), "nonexistent_var")
	require.ErrorIs(t, err, ErrVarNotFound)
}

func TestDeleteVar(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := PutVar(ctx, db, VarWrite{Key: "delete_var", Value: []byte(`"to be deleted"`)})
	require.NoError(t, err)

	rev, err := DeleteVar(ctx, db, "delete_var")
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	_, err = GetVar(ctx, db, "delete_var")
	require.ErrorIs(t, err, ErrVarNotFound)

	_, err = DeleteVar(ctx, db, "delete_var")
	require.ErrorIs(t, err, ErrVarNotFound)
}

func TestClearAndListVars(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, k := range []string{"var2", "var1", "var3"} {
		_, err := PutVar(ctx, db, VarWrite{Key: k, Value: []byte("1")})
		require.NoError(t, err)
	}

	vars, err := ListVars(ctx, db)
	require.NoError(t, err)
	keys := make([]string, 0, len(vars))
	for _, v := range vars {
		keys = append(keys, v.Key)
	}
	assert.Equal(t, []string{"var1", "var2", "var3"}, keys)

	removed, rev, err := ClearVars(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, int64(4), rev)

	vars, err = ListVars(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestExpiredVarsAreInvisible(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := PutVar(ctx, db, VarWrite{Key: "short", Value: []byte("1"), ExpiresAt: time.Now().Add(-time.Second)})
	require.NoError(t, err)
	_, err = PutVar(ctx, db, VarWrite{Key: "long", Value: []byte("2"), ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = GetVar(ctx, db, "short")
	require.ErrorIs(t, err, ErrVarNotFound)

	v, err := GetVar(ctx, db, "long")
	require.NoError(t, err)
	require.NotNil(t, v.ExpiresAt)

	_, err = PutVar(ctx, db, VarWrite{Key: "short", Value: []byte("3")})
	require.NoError(t, err, "expired key counts as absent")

	_, err = PutVar(ctx, db, VarWrite{Key: "gone", Value: []byte("4"), ExpiresAt: time.Now().Add(-time.Second)})
	require.NoError(t, err)
	n, err := PurgeExpiredVars(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := PutVar(ctx, db, VarWrite{Key: "a", Value: []byte(`{"x":1}`)})
	require.NoError(t, err)
	_, err = PutVar(ctx, db, VarWrite{Key: "b", Value: []byte(`[1,2]`)})
	require.NoError(t, err)

	rev, vars, err := Snapshot(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	require.Len(t, vars, 2)
	assert.Equal(t, `{"x":1}`, string(vars[0].Value))
}

func TestPutVar_ConcurrentInsertIfAbsentHasOneWinner(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "race.db")

	dbs := make([]*sql.DB, 4)
	for i := range dbs {
		db, err := InitDBWithPath(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		dbs[i] = db
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, db := range dbs {
		wg.Add(1)
		go func(db *sql.DB) {
			defer wg.Done()
			if _, err := PutVar(ctx, db, VarWrite{Key: "lock_owner", Value: []byte("1")}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(db)
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
