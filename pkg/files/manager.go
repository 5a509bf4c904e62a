// Package files provides Result-returning file helpers: atomic writes,
// JSON/YAML documents, directory listing, advisory locks and watching.
package files

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/logsys"
	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

// Manager resolves relative paths against a base directory.
type Manager struct {
	baseDir string
	log     *logsys.Log
	tracker *tracker.Tracker
}

type Option func(*Manager)

func WithBaseDir(dir string) Option {
	return func(m *Manager) { m.baseDir = dir }
}

func WithLog(l *logsys.Log) Option {
	return func(m *Manager) { m.log = l }
}

func WithTracker(t *tracker.Tracker) Option {
	return func(m *Manager) { m.tracker = t }
}

func New(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracker == nil {
		m.tracker = tracker.Default()
	}
	if m.log == nil {
		m.log = logsys.NewLog(nil)
	}
	if m.baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			m.baseDir = cwd
		}
	}
	m.log.Message("info", "FileManager initialized.")
	return m
}

func (m *Manager) BaseDir() string { return m.baseDir }

// Resolve returns an absolute path for p.
func (m *Manager) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.baseDir, p)
}

func (m *Manager) fail(err error, params map[string]any) result.Result {
	r := m.tracker.Return(err, tracker.WithParams(params))
	if text, ok := r.Err(); ok {
		m.log.Message("error", text)
	}
	return r
}

func (m *Manager) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("path cannot be empty")
	}
	return m.Resolve(p), nil
}

// AtomicWrite writes data to a temp file beside path, syncs it and renames it
// into place. Parent directories are created.
func (m *Manager) AtomicWrite(path string, data []byte) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path, "bytes": len(data)}

	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, params)
	}
	if err := writeAtomic(target, data, 0o644); err != nil {
		return m.fail(err, params)
	}
	return result.OK("Successfully wrote to " + target)
}

// AtomicWriteString is AtomicWrite for UTF-8 text.
func (m *Manager) AtomicWriteString(path, text string) result.Result {
	return m.AtomicWrite(path, []byte(text))
}

func writeAtomic(target string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err = os.Rename(tmpPath, target); err != nil {
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}

// ReadFile returns the file content as []byte.
func (m *Manager) ReadFile(path string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, map[string]any{"path": path})
	}
	b, err := os.ReadFile(target) //nolint:gosec // G304: caller-chosen path is the point of the helper
	if err != nil {
		return m.fail(errors.WithStack(err), map[string]any{"path": path})
	}
	return result.OK(b)
}

// ReadText returns the file content as a string.
func (m *Manager) ReadText(path string) result.Result {
	r := m.ReadFile(path)
	if !r.Success() {
		return r
	}
	b, _ := result.DataAs[[]byte](r)
	return result.OK(string(b))
}

// ListFiles lists regular files in dir. extensions filters by suffix
// (case-insensitive, with or without the dot); empty means all. With onlyName
// the stems are returned instead of full paths. Output is sorted.
func (m *Manager) ListFiles(dir string, extensions []string, onlyName bool) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"dir": dir, "extensions": extensions, "only_name": onlyName}

	target, err := m.resolve(dir)
	if err != nil {
		return m.fail(err, params)
	}
	st, err := os.Stat(target)
	if err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	if !st.IsDir() {
		return m.fail(&NotADirectoryError{Path: target}, params)
	}

	want := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		want[ext] = true
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if len(want) > 0 && !want[ext] {
			continue
		}
		if onlyName {
			out = append(out, strings.TrimSuffix(name, filepath.Ext(name)))
		} else {
			out = append(out, filepath.Join(target, name))
		}
	}
	sort.Strings(out)
	return result.OK(out)
}

// DeleteFile removes a file, making it writable and retrying on permission errors.
func (m *Manager) DeleteFile(path string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path}

	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, params)
	}
	st, err := os.Stat(target)
	if err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	if st.IsDir() {
		return m.fail(errors.Errorf("is a directory: %s", target), params)
	}
	if err := os.Remove(target); err != nil {
		if !errors.Is(err, fs.ErrPermission) {
			return m.fail(errors.WithStack(err), params)
		}
		_ = os.Chmod(target, 0o600)
		if err := os.Remove(target); err != nil {
			return m.fail(errors.WithStack(err), params)
		}
	}
	return result.OK("Successfully deleted " + target)
}

// DeleteDirectory removes dir and everything below it.
func (m *Manager) DeleteDirectory(dir string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"dir": dir}

	target, err := m.resolve(dir)
	if err != nil {
		return m.fail(err, params)
	}
	st, err := os.Stat(target)
	if err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	if !st.IsDir() {
		return m.fail(&NotADirectoryError{Path: target}, params)
	}
	if err := os.RemoveAll(target); err != nil {
		if !errors.Is(err, fs.ErrPermission) {
			return m.fail(errors.WithStack(err), params)
		}
		makeWritable(target)
		if err := os.RemoveAll(target); err != nil {
			return m.fail(errors.WithStack(err), params)
		}
	}
	return result.OK("Successfully deleted directory " + target)
}

func makeWritable(root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = os.Chmod(p, 0o755)
		} else {
			_ = os.Chmod(p, 0o644)
		}
		return nil
	})
}

// CreateDirectory creates dir and its parents. Existing directories are fine.
func (m *Manager) CreateDirectory(dir string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	target, err := m.resolve(dir)
	if err != nil {
		return m.fail(err, map[string]any{"dir": dir})
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return m.fail(errors.WithStack(err), map[string]any{"dir": dir})
	}
	return result.OK("Successfully created directory " + target)
}

// Exists reports whether path exists as bool data.
func (m *Manager) Exists(path string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, map[string]any{"path": path})
	}
	_, err = os.Stat(target)
	switch {
	case err == nil:
		return result.OK(true)
	case errors.Is(err, fs.ErrNotExist):
		return result.OK(false)
	default:
		return m.fail(errors.WithStack(err), map[string]any{"path": path})
	}
}
