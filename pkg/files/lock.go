package files

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

// LockMode selects an exclusive or shared advisory lock.
type LockMode int

const (
	LockExclusive LockMode = iota
	LockShared
)

func (m LockMode) String() string {
	if m == LockShared {
		return "shared"
	}
	return "exclusive"
}

func (m LockMode) flag() int {
	if m == LockShared {
		return syscall.LOCK_SH
	}
	return syscall.LOCK_EX
}

// FileLock is a held flock. Unlock is idempotent.
type FileLock struct {
	path string
	mode LockMode
	once sync.Once
	f    *os.File
}

func (l *FileLock) Path() string   { return l.path }
func (l *FileLock) Mode() LockMode { return l.mode }

// Unlock releases the lock and closes the lock file.
func (l *FileLock) Unlock() error {
	var err error
	l.once.Do(func() {
		err = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// Lock blocks until the advisory lock on path is acquired. The file is
// created when missing. Data is the *FileLock.
func (m *Manager) Lock(path string, mode LockMode) (r result.Result) {
	return m.lock(path, mode, false)
}

// TryLock is Lock without waiting; a held lock yields a *LockBusyError failure.
func (m *Manager) TryLock(path string, mode LockMode) (r result.Result) {
	return m.lock(path, mode, true)
}

func (m *Manager) lock(path string, mode LockMode, nonBlocking bool) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path, "mode": mode.String()}

	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, params)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // G304: caller-chosen lock path
	if err != nil {
		return m.fail(errors.WithStack(err), params)
	}

	how := mode.flag()
	if nonBlocking {
		how |= syscall.LOCK_NB
	}
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		_ = f.Close()
		if nonBlocking && errors.Is(err, syscall.EWOULDBLOCK) {
			return m.fail(&LockBusyError{Path: target, Mode: mode}, params)
		}
		return m.fail(errors.Wrapf(err, "acquire %s lock %s", mode, target), params)
	}
	return result.OK(&FileLock{path: target, mode: mode, f: f})
}

// WithLock runs fn while holding the lock on path.
func (m *Manager) WithLock(path string, mode LockMode, fn func() error) result.Result {
	r := m.Lock(path, mode)
	if !r.Success() {
		return r
	}
	l, _ := result.DataAs[*FileLock](r)
	defer func() { _ = l.Unlock() }()
	if err := fn(); err != nil {
		return m.fail(err, map[string]any{"path": path, "mode": mode.String()})
	}
	return result.OK(nil)
}
