package globalvars

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// EventsChannel is the pub/sub channel carrying changes for a namespace.
func EventsChannel(namespace string) string { return namespace + ":vars:events" }

func valuesKey(ns string) string    { return ns + ":vars" }
func revisionsKey(ns string) string { return ns + ":vars:revs" }
func expiryKey(ns string) string    { return ns + ":vars:exp" }
func counterKey(ns string) string   { return ns + ":vars:rev" }

// putScript: KEYS = values, revisions, expiry, counter.
// ARGV = key, value, expires ms (0 = never), overwrite (1/0), now ms.
// Returns the new revision or -1 when the key is live and overwrite is off.
//
//nolint:gochecknoglobals // compiled once; EVALSHA cache is per script
var putScript = redis.NewScript(`
local live = redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1
if live then
  local exp = tonumber(redis.call('HGET', KEYS[3], ARGV[1]) or '0')
  if exp ~= 0 and exp <= tonumber(ARGV[5]) then live = false end
end
if live and ARGV[4] == '0' then return -1 end
local rev = redis.call('INCR', KEYS[4])
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[1], rev)
if ARGV[3] == '0' then
  redis.call('HDEL', KEYS[3], ARGV[1])
else
  redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
end
return rev
`)

// deleteScript: same KEYS; ARGV = key, now ms. Returns -1 for missing keys.
//
//nolint:gochecknoglobals // compiled once; EVALSHA cache is per script
var deleteScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then return -1 end
local exp = tonumber(redis.call('HGET', KEYS[3], ARGV[1]) or '0')
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
if exp ~= 0 and exp <= tonumber(ARGV[2]) then return -1 end
return redis.call('INCR', KEYS[4])
`)

// clearScript: same KEYS; ARGV = now ms. Returns {removed live keys, revision}.
//
//nolint:gochecknoglobals // compiled once; EVALSHA cache is per script
var clearScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local removed = 0
local keys = redis.call('HKEYS', KEYS[1])
for _, k in ipairs(keys) do
  local exp = tonumber(redis.call('HGET', KEYS[3], k) or '0')
  if exp == 0 or exp > now then removed = removed + 1 end
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
local rev = redis.call('INCR', KEYS[4])
return {removed, rev}
`)

// RedisBackend shares variables through a Redis hash per namespace and
// publishes every change on EventsChannel(namespace).
type RedisBackend struct {
	rdb       redis.UniversalClient
	namespace string
	now       func() time.Time
}

// NewRedisBackend wraps an existing client. The caller owns the client.
func NewRedisBackend(rdb redis.UniversalClient, namespace string) (*RedisBackend, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisBackend{rdb: rdb, namespace: namespace, now: time.Now}, nil
}

// DialRedis parses a redis:// URL and pings the server with exponential
// backoff before returning the client.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(func() error {
		return rdb.Ping(ctx).Err()
	}, backoff.WithContext(b, ctx)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

func (b *RedisBackend) keys() []string {
	return []string{
		valuesKey(b.namespace),
		revisionsKey(b.namespace),
		expiryKey(b.namespace),
		counterKey(b.namespace),
	}
}

// publish runs after the write committed, so failures come back as
// *BroadcastError carrying the revision.
func (b *RedisBackend) publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return &BroadcastError{Revision: c.Revision, Err: fmt.Errorf("encode change: %w", err)}
	}
	if err := b.rdb.Publish(ctx, EventsChannel(b.namespace), payload).Err(); err != nil {
		return &BroadcastError{Revision: c.Revision, Err: fmt.Errorf("publish change: %w", err)}
	}
	return nil
}

func (b *RedisBackend) Put(ctx context.Context, w Write) (int64, error) {
	overwrite := "0"
	if w.Overwrite {
		overwrite = "1"
	}
	exp := unixMilli(w.ExpiresAt)
	rev, err := putScript.Run(ctx, b.rdb, b.keys(),
		w.Key, string(w.Value), exp, overwrite, b.now().UnixMilli(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", w.Key, err)
	}
	if rev < 0 {
		return 0, &KeyExistsError{Key: w.Key}
	}
	return rev, b.publish(ctx, Change{
		Kind: ChangePut, Key: w.Key, Value: w.Value, Revision: rev, Origin: w.Origin, ExpiresAt: exp,
	})
}

func (b *RedisBackend) Delete(ctx context.Context, key, origin string) (int64, error) {
	rev, err := deleteScript.Run(ctx, b.rdb, b.keys(), key, b.now().UnixMilli()).Int64()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", key, err)
	}
	if rev < 0 {
		return 0, &KeyNotFoundError{Key: key}
	}
	return rev, b.publish(ctx, Change{Kind: ChangeDelete, Key: key, Revision: rev, Origin: origin})
}

func (b *RedisBackend) Clear(ctx context.Context, origin string) (int, int64, error) {
	vals, err := clearScript.Run(ctx, b.rdb, b.keys(), b.now().UnixMilli()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("clear: %w", err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("clear: unexpected reply %v", vals)
	}
	removed, rev := int(vals[0]), vals[1]
	return removed, rev, b.publish(ctx, Change{Kind: ChangeClear, Revision: rev, Origin: origin})
}

func (b *RedisBackend) Snapshot(ctx context.Context) (int64, []Entry, error) {
	var (
		counter *redis.StringCmd
		values  *redis.MapStringStringCmd
		revs    *redis.MapStringStringCmd
		exps    *redis.MapStringStringCmd
	)
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		counter = p.Get(ctx, counterKey(b.namespace))
		values = p.HGetAll(ctx, valuesKey(b.namespace))
		revs = p.HGetAll(ctx, revisionsKey(b.namespace))
		exps = p.HGetAll(ctx, expiryKey(b.namespace))
		return nil
	})
	if err != nil && err != redis.Nil {
		return 0, nil, fmt.Errorf("snapshot: %w", err)
	}

	rev, err := counter.Int64()
	if err != nil && err != redis.Nil {
		return 0, nil, fmt.Errorf("snapshot revision: %w", err)
	}

	now := b.now().UnixMilli()
	out := make([]Entry, 0, len(values.Val()))
	for key, raw := range values.Val() {
		exp, _ := strconv.ParseInt(exps.Val()[key], 10, 64)
		if exp != 0 && exp <= now {
			continue
		}
		r, _ := strconv.ParseInt(revs.Val()[key], 10, 64)
		out = append(out, Entry{Key: key, Value: []byte(raw), Revision: r, ExpiresAt: fromUnixMilli(exp)})
	}
	return rev, out, nil
}

func (b *RedisBackend) Revision(ctx context.Context) (int64, error) {
	rev, err := b.rdb.Get(ctx, counterKey(b.namespace)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return rev, err
}

type redisSubscription struct {
	pubsub  *redis.PubSub
	changes chan Change
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *redisSubscription) Changes() <-chan Change { return s.changes }

func (s *redisSubscription) Close() error {
	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	return err
}

// Subscribe listens on EventsChannel. Undecodable messages are dropped.
func (b *RedisBackend) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, EventsChannel(b.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", EventsChannel(b.namespace), err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &redisSubscription{
		pubsub:  pubsub,
		changes: make(chan Change, 64),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.changes)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					continue
				}
				select {
				case s.changes <- c:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return s, nil
}
