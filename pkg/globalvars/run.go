package globalvars

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/result"
)

// Start syncs from the backend and keeps the local map current until Close:
// notifications are applied when the backend is a Notifier, and the backend
// revision is polled when WithSyncInterval is set. Without a backend it is a
// no-op.
func (s *Store) Start(ctx context.Context) result.Result {
	if s.backend == nil {
		return result.OK(nil)
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return result.OK(nil)
	}

	runCtx, cancel := context.WithCancel(ctx)

	var sub Subscription
	if n, ok := s.backend.(Notifier); ok {
		var err error
		if sub, err = n.Subscribe(runCtx); err != nil {
			cancel()
			return s.fail(errors.WithStack(err), nil)
		}
	}
	// Subscribe before the snapshot so no change falls between them.
	if _, err := s.sync(runCtx); err != nil {
		cancel()
		if sub != nil {
			_ = sub.Close()
		}
		return s.fail(errors.WithStack(err), nil)
	}

	s.cancel = cancel
	if sub != nil {
		s.wg.Add(1)
		go s.consume(runCtx, sub)
	}
	if s.syncInterval > 0 {
		s.wg.Add(1)
		go s.poll(runCtx, s.syncInterval)
	}
	return result.OK(nil)
}

// Close stops background replication started by Start.
func (s *Store) Close() error {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Store) consume(ctx context.Context, sub Subscription) {
	defer s.wg.Done()
	defer func() { _ = sub.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub.Changes():
			if !ok {
				return
			}
			if c.Origin == s.origin {
				continue
			}
			s.Apply(c)
		}
	}
}

func (s *Store) poll(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rev, err := s.backend.Revision(ctx)
			if err != nil {
				s.log.Message("warn", "poll global vars revision failed", zap.Error(err))
				continue
			}
			s.mu.Lock()
			behind := rev > s.floor
			s.mu.Unlock()
			if !behind {
				continue
			}
			if _, err := s.sync(ctx); err != nil && ctx.Err() == nil {
				s.log.Message("warn", "resync global vars failed", zap.Error(err))
			}
		}
	}
}
