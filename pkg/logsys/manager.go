// Package logsys manages named zap loggers that write to a per-session log
// file and to the console.
package logsys

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const sessionLayout = "2006-01-02_15h-04m-05s"

// DuplicateLoggerError is returned when a logger name is reused.
type DuplicateLoggerError struct{ Name string }

func (e *DuplicateLoggerError) Error() string {
	return fmt.Sprintf("logger with name %q already exists", e.Name)
}
func (e *DuplicateLoggerError) TypeName() string { return "DuplicateLoggerError" }

// UnknownLoggerError is returned for names never passed to MakeLogger.
type UnknownLoggerError struct{ Name string }

func (e *UnknownLoggerError) Error() string {
	return fmt.Sprintf("logger with name %q does not exist; create it with MakeLogger first", e.Name)
}
func (e *UnknownLoggerError) TypeName() string { return "UnknownLoggerError" }

// InvalidLevelError is returned for level names outside debug/info/warn/error.
type InvalidLevelError struct{ Level string }

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q: use debug, info, warning or error", e.Level)
}
func (e *InvalidLevelError) TypeName() string { return "InvalidLevelError" }

// ParseLevel maps a case-insensitive level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, &InvalidLevelError{Level: level}
	}
}

type namedLogger struct {
	logger *zap.Logger
	file   *os.File
	path   string
}

// Manager owns a set of named loggers sharing one session directory.
type Manager struct {
	mu        sync.Mutex
	baseDir   string
	secondDir string
	session   string
	console   zapcore.WriteSyncer
	tracker   *tracker.Tracker
	loggers   map[string]*namedLogger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConsole redirects the console half of every logger. Defaults to stderr.
func WithConsole(ws zapcore.WriteSyncer) Option {
	return func(m *Manager) { m.console = ws }
}

// WithSession fixes the session directory stamp.
func WithSession(at time.Time) Option {
	return func(m *Manager) { m.session = at.Format(sessionLayout) }
}

func WithTracker(t *tracker.Tracker) Option {
	return func(m *Manager) { m.tracker = t }
}

// NewManager creates a manager writing under <baseDir>/<secondDir>. An empty
// baseDir means ./logs; an empty secondDir means "default".
func NewManager(baseDir, secondDir string, opts ...Option) *Manager {
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = filepath.Join(cwd, "logs")
		} else {
			baseDir = "logs"
		}
	}
	if secondDir == "" {
		secondDir = "default"
	}
	m := &Manager{
		baseDir:   baseDir,
		secondDir: secondDir,
		session:   time.Now().Format(sessionLayout),
		console:   zapcore.Lock(os.Stderr),
		loggers:   make(map[string]*namedLogger),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracker == nil {
		m.tracker = tracker.Default()
	}
	return m
}

// SessionDir is the directory holding this session's log files.
func (m *Manager) SessionDir() string {
	return filepath.Join(m.baseDir, m.secondDir, m.session+"_log")
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " - ",
	}
}

// MakeLogger creates a named logger. The Result data is the *zap.Logger.
func (m *Manager) MakeLogger(name, level string) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)

	lvl, err := ParseLevel(level)
	if err != nil {
		return m.tracker.Return(err, tracker.WithParams(map[string]any{"name": name, "level": level}))
	}
	if strings.TrimSpace(name) == "" {
		return m.tracker.Return(errors.New("logger name cannot be empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loggers[name]; exists {
		return m.tracker.Return(&DuplicateLoggerError{Name: name})
	}

	dir := m.SessionDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m.tracker.Return(errors.Wrap(err, "create log directory"))
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // G304: path built from manager-owned dir
	if err != nil {
		return m.tracker.Return(errors.Wrap(err, "open log file"))
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(f), lvl),
		zapcore.NewCore(enc.Clone(), m.console, lvl),
	)
	logger := zap.New(core).Named(name)

	m.loggers[name] = &namedLogger{logger: logger, file: f, path: path}
	return result.OK(logger)
}

// GetLogger returns a logger created earlier. The Result data is the *zap.Logger.
func (m *Manager) GetLogger(name string) result.Result {
	m.mu.Lock()
	nl, ok := m.loggers[name]
	m.mu.Unlock()
	if !ok {
		return m.tracker.Return(&UnknownLoggerError{Name: name})
	}
	return result.OK(nl.logger)
}

// Logger is GetLogger without the Result envelope.
func (m *Manager) Logger(name string) (*zap.Logger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nl, ok := m.loggers[name]
	if !ok {
		return nil, false
	}
	return nl.logger, true
}

// MustLogger returns the named logger, creating it at info level when missing.
// Falls back to a no-op logger when the file cannot be opened.
func (m *Manager) MustLogger(name string) *zap.Logger {
	if l, ok := m.Logger(name); ok {
		return l
	}
	if r := m.MakeLogger(name, "info"); r.Success() {
		if l, ok := result.DataAs[*zap.Logger](r); ok {
			return l
		}
	}
	if l, ok := m.Logger(name); ok {
		return l
	}
	return zap.NewNop()
}

// LogPath returns the file a logger writes to.
func (m *Manager) LogPath(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nl, ok := m.loggers[name]
	if !ok {
		return "", false
	}
	return nl.path, true
}

func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.loggers))
	for n := range m.loggers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sync flushes every logger's file.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, nl := range m.loggers {
		_ = nl.logger.Sync()
		if err := nl.file.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes and closes every log file. Loggers must not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, nl := range m.loggers {
		_ = nl.logger.Sync()
		if err := nl.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.loggers, name)
	}
	return firstErr
}
