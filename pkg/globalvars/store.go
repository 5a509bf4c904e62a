// Package globalvars is a process-wide key/value store. A single mutex guards
// the local map; an optional Backend makes the store shared between
// processes, with the backend as the source of truth.
package globalvars

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/logsys"
	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

type entry struct {
	value     any
	revision  int64
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store holds global variables. Use New; the zero value is not usable.
type Store struct {
	mu   sync.Mutex
	vars map[string]entry
	// tombs records the revision at which a key was deleted so that late
	// notifications cannot resurrect it.
	tombs map[string]int64
	// floor is the revision of the last snapshot or clear; older changes are stale.
	floor int64
	// revision counts local writes when there is no backend.
	revision int64

	backend      Backend
	origin       string
	syncInterval time.Duration
	log          *logsys.Log
	tracker      *tracker.Tracker
	now          func() time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Store)

// WithBackend makes the store shared through b.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithSyncInterval polls the backend revision every d after Start and
// resyncs when it moved. Use it for backends without notifications.
func WithSyncInterval(d time.Duration) Option {
	return func(s *Store) { s.syncInterval = d }
}

func WithLog(l *logsys.Log) Option {
	return func(s *Store) { s.log = l }
}

func WithTracker(t *tracker.Tracker) Option {
	return func(s *Store) { s.tracker = t }
}

// WithClock overrides the time source used for TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		vars:   make(map[string]entry),
		tombs:  make(map[string]int64),
		origin: uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = tracker.Default()
	}
	if s.log == nil {
		s.log = logsys.NewLog(nil)
	}
	return s
}

// Origin identifies this store in replicated changes.
func (s *Store) Origin() string { return s.origin }

// SetOption configures a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	overwrite bool
	ttl       time.Duration
}

// WithOverwrite allows Set to replace a live key.
func WithOverwrite(on bool) SetOption {
	return func(c *setConfig) { c.overwrite = on }
}

// WithTTL expires the key d after the write. d <= 0 means no expiry.
func WithTTL(d time.Duration) SetOption {
	return func(c *setConfig) { c.ttl = d }
}

func (s *Store) fail(err error, params map[string]any) result.Result {
	r := s.tracker.Return(err, tracker.WithParams(params))
	if text, ok := r.Err(); ok {
		s.log.Message("error", text)
	}
	return r
}

// committed reports whether err still leaves a committed write behind. Peers
// that missed the notification catch up on their next Sync or poll.
func (s *Store) committed(err error) bool {
	if err == nil {
		return true
	}
	var be *BroadcastError
	if !errors.As(err, &be) {
		return false
	}
	s.log.Message("warn", "change committed but not broadcast",
		zap.Int64("revision", be.Revision), zap.Error(be.Err))
	return true
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.WithStack(&EmptyKeyError{})
	}
	return nil
}

// roundTrip JSON-encodes value and decodes it back to its generic form, so a
// writer sees the same value other processes will.
func roundTrip(value any) ([]byte, any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode value")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil, errors.Wrap(err, "decode value")
	}
	return raw, v, nil
}

// Set stores value under key. Without WithOverwrite(true) an existing live
// key fails with *KeyExistsError.
func (s *Store) Set(key string, value any, opts ...SetOption) (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	cfg := setConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	params := map[string]any{"key": key, "overwrite": cfg.overwrite}
	if err := checkKey(key); err != nil {
		return s.fail(err, params)
	}

	var expiresAt time.Time
	if cfg.ttl > 0 {
		expiresAt = s.now().Add(cfg.ttl)
	}

	if s.backend == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		now := s.now()
		if cur, ok := s.vars[key]; ok && !cur.expired(now) && !cfg.overwrite {
			return s.fail(errors.WithStack(&KeyExistsError{Key: key}), params)
		}
		s.revision++
		s.vars[key] = entry{value: value, revision: s.revision, expiresAt: expiresAt}
		return result.OK(nil)
	}

	raw, generic, err := roundTrip(value)
	if err != nil {
		return s.fail(err, params)
	}
	rev, err := s.backend.Put(context.Background(), Write{
		Key: key, Value: raw, Origin: s.origin, ExpiresAt: expiresAt, Overwrite: cfg.overwrite,
	})
	if !s.committed(err) {
		return s.fail(errors.WithStack(err), params)
	}

	s.mu.Lock()
	s.applyPut(key, generic, rev, expiresAt)
	s.mu.Unlock()
	return result.OK(nil)
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	params := map[string]any{"key": key}
	if err := checkKey(key); err != nil {
		return s.fail(err, params)
	}

	s.mu.Lock()
	e, ok := s.liveLocked(key)
	s.mu.Unlock()
	if !ok {
		return s.fail(errors.WithStack(&KeyNotFoundError{Key: key}), params)
	}
	return result.OK(e.value)
}

// liveLocked returns the entry for key, dropping it when expired.
func (s *Store) liveLocked(key string) (entry, bool) {
	e, ok := s.vars[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.vars, key)
		return entry{}, false
	}
	return e, true
}

// Delete removes key. Missing keys fail with *KeyNotFoundError.
func (s *Store) Delete(key string) (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	params := map[string]any{"key": key}
	if err := checkKey(key); err != nil {
		return s.fail(err, params)
	}

	if s.backend == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.liveLocked(key); !ok {
			return s.fail(errors.WithStack(&KeyNotFoundError{Key: key}), params)
		}
		delete(s.vars, key)
		s.revision++
		return result.OK(nil)
	}

	rev, err := s.backend.Delete(context.Background(), key, s.origin)
	if !s.committed(err) {
		return s.fail(errors.WithStack(err), params)
	}
	s.mu.Lock()
	s.applyDelete(key, rev)
	s.mu.Unlock()
	return result.OK(nil)
}

// Exists reports as bool data whether key is live.
func (s *Store) Exists(key string) (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	if err := checkKey(key); err != nil {
		return s.fail(err, map[string]any{"key": key})
	}
	s.mu.Lock()
	_, ok := s.liveLocked(key)
	s.mu.Unlock()
	return result.OK(ok)
}

// ListKeys returns the live keys in sorted order.
func (s *Store) ListKeys() (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	s.mu.Lock()
	now := s.now()
	keys := make([]string, 0, len(s.vars))
	for k, e := range s.vars {
		if e.expired(now) {
			delete(s.vars, k)
			continue
		}
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	return result.OK(keys)
}

// Clear removes every key. Data is the number of live keys removed.
func (s *Store) Clear() (r result.Result) {
	defer tracker.Catch(s.tracker, &r)

	if s.backend == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		now := s.now()
		n := 0
		for _, e := range s.vars {
			if !e.expired(now) {
				n++
			}
		}
		s.vars = make(map[string]entry)
		s.revision++
		return result.OK(n)
	}

	removed, rev, err := s.backend.Clear(context.Background(), s.origin)
	if !s.committed(err) {
		return s.fail(errors.WithStack(err), nil)
	}
	s.mu.Lock()
	s.applyClear(rev)
	s.mu.Unlock()
	return result.OK(removed)
}

// Sync replaces local state with the backend snapshot. Data is the snapshot
// revision. Without a backend it is a successful no-op.
func (s *Store) Sync(ctx context.Context) (r result.Result) {
	defer tracker.Catch(s.tracker, &r)
	if s.backend == nil {
		return result.OK(int64(0))
	}
	rev, err := s.sync(ctx)
	if err != nil {
		return s.fail(errors.WithStack(err), nil)
	}
	return result.OK(rev)
}

func (s *Store) sync(ctx context.Context) (int64, error) {
	rev, entries, err := s.backend.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	vars := make(map[string]entry, len(entries))
	for _, e := range entries {
		var v any
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return 0, errors.Wrapf(err, "decode %s", e.Key)
		}
		vars[e.Key] = entry{value: v, revision: e.Revision, expiresAt: e.ExpiresAt}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rev < s.floor {
		return s.floor, nil
	}
	// Changes applied after the snapshot was taken survive it.
	tombs := make(map[string]int64)
	for k, e := range s.vars {
		if e.revision > rev {
			vars[k] = e
		}
	}
	for k, t := range s.tombs {
		if t > rev {
			delete(vars, k)
			tombs[k] = t
		}
	}
	s.vars = vars
	s.tombs = tombs
	s.floor = rev
	s.log.Message("debug", "global vars synced", zap.Int64("revision", rev), zap.Int("keys", len(vars)))
	return rev, nil
}

func (s *Store) staleLocked(key string, rev int64) bool {
	if rev <= s.floor {
		return true
	}
	if e, ok := s.vars[key]; ok && rev <= e.revision {
		return true
	}
	if t, ok := s.tombs[key]; ok && rev <= t {
		return true
	}
	return false
}

func (s *Store) applyPut(key string, value any, rev int64, expiresAt time.Time) {
	if s.staleLocked(key, rev) {
		return
	}
	delete(s.tombs, key)
	s.vars[key] = entry{value: value, revision: rev, expiresAt: expiresAt}
}

func (s *Store) applyDelete(key string, rev int64) {
	if s.staleLocked(key, rev) {
		return
	}
	delete(s.vars, key)
	s.tombs[key] = rev
}

func (s *Store) applyClear(rev int64) {
	if rev <= s.floor {
		return
	}
	for k, e := range s.vars {
		if e.revision <= rev {
			delete(s.vars, k)
		}
	}
	for k, t := range s.tombs {
		if t <= rev {
			delete(s.tombs, k)
		}
	}
	s.floor = rev
}

// Apply merges a replicated change into the local map. Changes at or below
// the revision already held for the key are ignored.
func (s *Store) Apply(c Change) {
	var value any
	if c.Kind == ChangePut {
		if err := json.Unmarshal(c.Value, &value); err != nil {
			s.log.Message("warn", "dropping undecodable change", zap.String("key", c.Key), zap.Error(err))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch c.Kind {
	case ChangePut:
		s.applyPut(c.Key, value, c.Revision, fromUnixMilli(c.ExpiresAt))
	case ChangeDelete:
		s.applyDelete(c.Key, c.Revision)
	case ChangeClear:
		s.applyClear(c.Revision)
	}
}
