package globalvars

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tbot223/tbotcore/internal/store"
)

// SQLiteBackend keeps shared variables in the toolkit database. It has no push
// notifications; pair it with WithSyncInterval.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend uses a database opened with store.InitDB or store.InitDBWithPath.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Put(ctx context.Context, w Write) (int64, error) {
	rev, err := store.PutVar(ctx, b.db, store.VarWrite{
		Key:       w.Key,
		Value:     w.Value,
		Origin:    w.Origin,
		ExpiresAt: w.ExpiresAt,
		Overwrite: w.Overwrite,
	})
	return rev, translateStoreErr(w.Key, err)
}

func (b *SQLiteBackend) Delete(ctx context.Context, key, _ string) (int64, error) {
	rev, err := store.DeleteVar(ctx, b.db, key)
	return rev, translateStoreErr(key, err)
}

func (b *SQLiteBackend) Clear(ctx context.Context, _ string) (int, int64, error) {
	return store.ClearVars(ctx, b.db)
}

func (b *SQLiteBackend) Snapshot(ctx context.Context) (int64, []Entry, error) {
	rev, vars, err := store.Snapshot(ctx, b.db)
	if err != nil {
		return 0, nil, err
	}
	out := make([]Entry, 0, len(vars))
	for _, v := range vars {
		e := Entry{Key: v.Key, Value: v.Value, Revision: v.Revision}
		if v.ExpiresAt != nil {
			e.ExpiresAt = *v.ExpiresAt
		}
		out = append(out, e)
	}
	return rev, out, nil
}

func (b *SQLiteBackend) Revision(ctx context.Context) (int64, error) {
	return store.CurrentRevision(ctx, b.db)
}

func translateStoreErr(key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVarExists):
		return &KeyExistsError{Key: key}
	case errors.Is(err, store.ErrVarNotFound):
		return &KeyNotFoundError{Key: key}
	default:
		return err
	}
}
