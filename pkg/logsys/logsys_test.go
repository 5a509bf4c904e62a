package logsys

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(t.TempDir(), "test_logs",
		WithConsole(zapcore.AddSync(io.Discard)),
		WithSession(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)),
	)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMakeLogger_RejectsDuplicates(t *testing.T) {
	m := newTestManager(t)

	r := m.MakeLogger("test_logger", "DEBUG")
	require.True(t, r.Success())
	assert.Contains(t, m.Names(), "test_logger")

	dup := m.MakeLogger("test_logger", "DEBUG")
	require.False(t, dup.Success())
	text, _ := dup.Err()
	assert.True(t, strings.HasPrefix(text, "DuplicateLoggerError :"), text)
}

func TestGetLogger_UnknownNameFails(t *testing.T) {
	m := newTestManager(t)
	r := m.GetLogger("test_logger_get")
	require.False(t, r.Success())
	info, ok := result.DataAs[tracker.ErrorInfo](r)
	require.True(t, ok)
	assert.Equal(t, "UnknownLoggerError", info.Error.Type)
}

func TestMakeLogger_InvalidLevelFails(t *testing.T) {
	m := newTestManager(t)
	r := m.MakeLogger("invalid_level_logger", "INVALID_LEVEL")
	require.False(t, r.Success())
	assert.NotContains(t, m.Names(), "invalid_level_logger")
}

func TestLogger_WritesSessionFile(t *testing.T) {
	m := newTestManager(t)
	require.True(t, m.MakeLogger("functional_logger", "info").Success())

	r := m.GetLogger("functional_logger")
	require.True(t, r.Success())
	logger, ok := result.DataAs[*zap.Logger](r)
	require.True(t, ok)

	logger.Info("This is an info message for testing.")
	logger.Debug("This is a debug message for testing.")
	logger.Error("This is an error message for testing.")
	require.NoError(t, m.Sync())

	path, ok := m.LogPath("functional_logger")
	require.True(t, ok)
	assert.Contains(t, path, "2025-03-04_05h-06m-07s_log")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "INFO - functional_logger - This is an info message for testing.")
	assert.Contains(t, content, "ERROR - functional_logger")
	assert.NotContains(t, content, "debug message")
}

func TestMustLogger_CreatesOnce(t *testing.T) {
	m := newTestManager(t)
	a := m.MustLogger("lazy")
	b := m.MustLogger("lazy")
	assert.Same(t, a, b)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	_, err = ParseLevel("loud")
	var invalid *InvalidLevelError
	assert.ErrorAs(t, err, &invalid)
}

func TestLog_MessageDispatch(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLog(zap.New(core))

	require.True(t, log.Message("info", "hello").Success())
	require.True(t, log.Message("WARNING", "careful", zap.Int("n", 1)).Success())
	require.True(t, log.Messagef("debug", "value=%d", 3).Success())

	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
	warn := logs.FilterMessage("careful").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
	assert.Equal(t, 1, logs.FilterMessage("value=3").Len())

	bad := log.Message("critical", "nope")
	require.False(t, bad.Success())
}

func TestLog_ReportsThroughItsTracker(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)

	r := NewLog(zap.New(core), LogTracker(tracker.New(tracker.Masked(true)))).Message("critical", "nope")
	require.False(t, r.Success())
	info, ok := result.DataAs[tracker.ErrorInfo](r)
	require.True(t, ok)
	assert.True(t, info.ComputerInfo.Masked())

	r = NewLog(zap.New(core)).Message("critical", "nope")
	info, ok = result.DataAs[tracker.ErrorInfo](r)
	require.True(t, ok)
	assert.False(t, info.ComputerInfo.Masked())
}

func TestLog_DisabledIsNoop(t *testing.T) {
	var nilLog *Log
	r := nilLog.Message("info", "ignored")
	require.True(t, r.Success())
	assert.Equal(t, false, r.Data())

	r = NewLog(nil).Message("bogus", "ignored")
	require.True(t, r.Success())
	assert.NotNil(t, NewLog(nil).Logger())
}
