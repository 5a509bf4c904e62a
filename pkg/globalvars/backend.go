package globalvars

import (
	"context"
	"time"
)

// ChangeKind names what a replicated change did.
type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
	ChangeClear  ChangeKind = "clear"
)

// Change is one replicated write. Value is JSON text for puts.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	Key       string     `json:"key,omitempty"`
	Value     []byte     `json:"value,omitempty"`
	Revision  int64      `json:"revision"`
	Origin    string     `json:"origin"`
	ExpiresAt int64      `json:"expires_at,omitempty"` // unix ms, 0 = never
}

// Entry is a live key as read from a backend snapshot.
type Entry struct {
	Key       string
	Value     []byte
	Revision  int64
	ExpiresAt time.Time
}

// Write is a put request sent to a backend.
type Write struct {
	Key       string
	Value     []byte
	Origin    string
	ExpiresAt time.Time
	Overwrite bool
}

// Backend is the authoritative shared state behind a Store. Every mutating
// call bumps one store-wide revision and returns it. Put without Overwrite
// is insert-if-absent and fails with ErrKeyExists; Delete of a missing key
// fails with ErrKeyNotFound. A *BroadcastError means the write committed and
// only the notification failed; the returned revision is valid.
type Backend interface {
	Put(ctx context.Context, w Write) (int64, error)
	Delete(ctx context.Context, key, origin string) (int64, error)
	Clear(ctx context.Context, origin string) (removed int, revision int64, err error)
	Snapshot(ctx context.Context) (int64, []Entry, error)
	Revision(ctx context.Context) (int64, error)
}

// Subscription delivers changes made through a shared backend.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Notifier is implemented by backends that push changes. Subscribe returns
// once the subscription is active.
type Notifier interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
