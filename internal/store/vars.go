package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Var is one row of the shared variable table. Value holds JSON text.
type Var struct {
	Key       string     `json:"key"`
	Value     []byte     `json:"value"`
	Revision  int64      `json:"revision"`
	Origin    string     `json:"origin"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// VarWrite describes a put. A zero ExpiresAt means the key never expires.
type VarWrite struct {
	Key       string
	Value     []byte
	Origin    string
	ExpiresAt time.Time
	Overwrite bool
}

// nextRevision bumps and returns the store-wide revision counter.
func nextRevision(ctx context.Context, q Querier) (int64, error) {
	var rev int64
	err := q.QueryRowContext(ctx,
		`UPDATE store_meta SET value = value + 1 WHERE name = 'revision' RETURNING value`,
	).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return rev, nil
}

// CurrentRevision returns the latest store revision without bumping it.
func CurrentRevision(ctx context.Context, q Querier) (int64, error) {
	var rev int64
	if err := q.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE name = 'revision'`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func liveClause() string {
	return `(expires_at IS NULL OR expires_at > ?)`
}

// PutVar writes a variable and returns the revision assigned to it.
// Without Overwrite the write is insert-if-absent: a live key yields
// *VarExistsError. Expired rows count as absent.
func PutVar(ctx context.Context, db *sql.DB, w VarWrite) (int64, error) {
	var rev int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		now := time.Now()
		if !w.Overwrite {
			var one int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM global_vars WHERE key = ? AND `+liveClause(),
				w.Key, now.UnixNano(),
			).Scan(&one)
			switch {
			case err == nil:
				return &VarExistsError{Key: w.Key}
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("check existing var: %w", err)
			}
		}

		next, err := nextRevision(ctx, tx)
		if err != nil {
			return err
		}
		var expires any
		if !w.ExpiresAt.IsZero() {
			expires = w.ExpiresAt.UnixNano()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO global_vars (key, value, revision, origin, expires_at, updated_at)
			VALUES (?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				revision = excluded.revision,
				origin = excluded.origin,
				expires_at = excluded.expires_at,
				updated_at = excluded.updated_at
		`, w.Key, string(w.Value), next, w.Origin, expires)
		if err != nil {
			return fmt.Errorf("upsert var: %w", err)
		}
		rev = next
		return nil
	})
	return rev, err
}

// GetVar loads a live variable. Missing or expired keys yield *VarNotFoundError.
func GetVar(ctx context.Context, q Querier, key string) (Var, error) {
	row := q.QueryRowContext(ctx,
		`SELECT key, value, revision, origin, expires_at FROM global_vars WHERE key = ? AND `+liveClause(),
		key, time.Now().UnixNano(),
	)
	v, err := scanVar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Var{}, &VarNotFoundError{Key: key}
	}
	return v, err
}

// DeleteVar removes a live key and returns the revision of the delete.
func DeleteVar(ctx context.Context, db *sql.DB, key string) (int64, error) {
	var rev int64
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM global_vars WHERE key = ? AND `+liveClause(),
			key, time.Now().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("delete var: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete var rows affected: %w", err)
		}
		if n == 0 {
			return &VarNotFoundError{Key: key}
		}
		rev, err = nextRevision(ctx, tx)
		return err
	})
	return rev, err
}

// ClearVars removes every variable. It returns how many live keys were removed
// and the revision of the clear.
func ClearVars(ctx context.Context, db *sql.DB) (int, int64, error) {
	var (
		removed int
		rev     int64
	)
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM global_vars WHERE `+liveClause(), time.Now().UnixNano(),
		).Scan(&removed); err != nil {
			return fmt.Errorf("count vars: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM global_vars`); err != nil {
			return fmt.Errorf("clear vars: %w", err)
		}
		var err error
		rev, err = nextRevision(ctx, tx)
		return err
	})
	return removed, rev, err
}

// ListVars returns live variables ordered by key.
func ListVars(ctx context.Context, q Querier) ([]Var, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key, value, revision, origin, expires_at FROM global_vars WHERE `+liveClause()+` ORDER BY key`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("list vars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Var
	for rows.Next() {
		v, err := scanVar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Snapshot reads the revision and every live variable in one transaction.
func Snapshot(ctx context.Context, db *sql.DB) (int64, []Var, error) {
	var (
		rev  int64
		vars []Var
	)
	err := Transact(ctx, db, func(tx *sql.Tx) error {
		var err error
		if rev, err = CurrentRevision(ctx, tx); err != nil {
			return err
		}
		vars, err = ListVars(ctx, tx)
		return err
	})
	return rev, vars, err
}

// PurgeExpiredVars deletes expired rows. Expired rows are already invisible to
// reads, so this only reclaims space and does not bump the revision.
func PurgeExpiredVars(ctx context.Context, q Querier) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM global_vars WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired vars: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVar(s rowScanner) (Var, error) {
	var (
		v       Var
		value   string
		expires sql.NullInt64
	)
	if err := s.Scan(&v.Key, &value, &v.Revision, &v.Origin, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Var{}, err
		}
		return Var{}, fmt.Errorf("scan var: %w", err)
	}
	v.Value = []byte(value)
	if expires.Valid {
		t := time.Unix(0, expires.Int64)
		v.ExpiresAt = &t
	}
	return v, nil
}
