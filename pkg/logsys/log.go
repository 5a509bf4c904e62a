package logsys

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

// Log dispatches messages by level name. A Log without a logger is valid and
// turns every call into a successful no-op.
type Log struct {
	logger  *zap.Logger
	tracker *tracker.Tracker
}

// LogOption configures a Log.
type LogOption func(*Log)

// LogTracker sets the tracker that reports Message failures.
func LogTracker(t *tracker.Tracker) LogOption {
	return func(l *Log) { l.tracker = t }
}

func NewLog(logger *zap.Logger, opts ...LogOption) *Log {
	l := &Log{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracker == nil {
		l.tracker = tracker.Default()
	}
	return l
}

func (l *Log) Logger() *zap.Logger {
	if l == nil || l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}

func (l *Log) Enabled() bool { return l != nil && l.logger != nil }

// Message logs msg at level (debug, info, warn/warning, error). The Result
// data reports whether anything was written; false means logging is disabled.
func (l *Log) Message(level, msg string, fields ...zap.Field) result.Result {
	if !l.Enabled() {
		return result.OK(false)
	}
	write := l.levelFunc(level)
	if write == nil {
		t := l.tracker
		if t == nil {
			t = tracker.Default()
		}
		return t.Return(&InvalidLevelError{Level: level})
	}
	write(msg, fields...)
	return result.OK(true)
}

// Messagef is Message with printf formatting.
func (l *Log) Messagef(level, format string, args ...any) result.Result {
	return l.Message(level, fmt.Sprintf(format, args...))
}

func (l *Log) levelFunc(level string) func(string, ...zap.Field) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return l.logger.Debug
	case "info":
		return l.logger.Info
	case "warn", "warning":
		return l.logger.Warn
	case "error":
		return l.logger.Error
	default:
		return nil
	}
}
