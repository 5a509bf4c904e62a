// Package tracker converts faults (errors and recovered panics) into Results
// carrying a structured error report.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/result"
)

const timestampLayout = "2006-01-02 15:04:05"

// Tracker builds error reports. It is safe for concurrent use.
type Tracker struct {
	system SystemInfo
	masked bool
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// Masked makes masking the default for every report built by the tracker.
func Masked(on bool) Option {
	return func(t *Tracker) { t.masked = on }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithSystemInfo replaces the collected platform snapshot.
func WithSystemInfo(info SystemInfo) Option {
	return func(t *Tracker) { t.system = info }
}

// New returns a tracker with the process platform snapshot cached.
func New(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if t.system == (SystemInfo{}) {
		t.system = CollectSystemInfo()
	}
	return t
}

//nolint:gochecknoglobals // lazily built shared tracker for packages constructed without one
var (
	defaultOnce    sync.Once
	defaultTracker *Tracker
)

// Default returns a process-wide tracker.
func Default() *Tracker {
	defaultOnce.Do(func() { defaultTracker = New() })
	return defaultTracker
}

// SystemInfo returns the cached platform snapshot.
func (t *Tracker) SystemInfo() SystemInfo { return t.system }

// ErrorDetail names the fault.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// InputContext records what the failing operation was called with.
type InputContext struct {
	UserInput any            `json:"user_input"`
	Params    map[string]any `json:"params"`
}

// ErrorInfo is the structured fault report carried as Result data.
type ErrorInfo struct {
	Success      bool         `json:"success"`
	Error        ErrorDetail  `json:"error"`
	Location     Location     `json:"location"`
	Timestamp    string       `json:"timestamp"`
	InputContext InputContext `json:"input_context"`
	Traceback    string       `json:"traceback"`
	ComputerInfo ComputerInfo `json:"computer_info"`
}

// Mask returns a copy with computer_info replaced by the placeholder.
func (e ErrorInfo) Mask() ErrorInfo {
	e.ComputerInfo = ComputerInfo{}
	return e
}

// InfoOption adds caller context to a report.
type InfoOption func(*infoConfig)

type infoConfig struct {
	userInput any
	params    map[string]any
	masking   *bool
}

func WithUserInput(v any) InfoOption {
	return func(c *infoConfig) { c.userInput = v }
}

func WithParams(p map[string]any) InfoOption {
	return func(c *infoConfig) { c.params = p }
}

// WithMasking overrides the tracker's masking default for one report.
func WithMasking(on bool) InfoOption {
	return func(c *infoConfig) { c.masking = &on }
}

// TypeName reports the fault type used in the "<Type> :<message>" text.
// Errors may override it by implementing TypeName() string; otherwise the
// dynamic type of the first non-wrapper error in the chain is used.
func TypeName(err error) string {
	if err == nil {
		return "UnknownError"
	}
	for e := err; e != nil; e = next(e) {
		if n, ok := e.(interface{ TypeName() string }); ok {
			return n.TypeName()
		}
		name := fmt.Sprintf("%T", e)
		if !transparentWrappers[name] {
			return name
		}
	}
	return fmt.Sprintf("%T", err)
}

//nolint:gochecknoglobals // fixed lookup table
var transparentWrappers = map[string]bool{
	"*errors.withStack":   true,
	"*errors.withMessage": true,
	"*fmt.wrapError":      true,
}

// ErrorText renders "<Type> :<message>" for err.
func ErrorText(err error) string {
	if err == nil {
		return result.FormatError("UnknownError", "No exception information available")
	}
	return result.FormatError(TypeName(err), err.Error())
}

func stackFor(err error) errors.StackTrace {
	if st := innermostStack(err); len(st) > 0 {
		return st
	}
	return callerStack()
}

func locate(err error) Location {
	if err == nil {
		return unknownLocation
	}
	st := stackFor(err)
	if len(st) == 0 {
		return unknownLocation
	}
	return frameLocation(st[0])
}

// Location reports where the fault happened as "<file>, line <n>, in <function>".
func (t *Tracker) Location(err error) (r result.Result) {
	defer t.guardConversion("tracker.Location", &r)
	return result.OK(locate(err).String())
}

// Info builds the structured fault report.
func (t *Tracker) Info(err error, opts ...InfoOption) (r result.Result) {
	defer t.guardConversion("tracker.Info", &r)
	return result.OK(t.buildInfo(err, opts...))
}

// Return converts a fault into a failure Result with the report as data.
func (t *Tracker) Return(err error, opts ...InfoOption) (r result.Result) {
	defer t.guardConversion("tracker.Return", &r)
	info := t.buildInfo(err, opts...)
	return result.Fail(ErrorText(err), info.Location.String(), info)
}

func (t *Tracker) buildInfo(err error, opts ...InfoOption) ErrorInfo {
	cfg := infoConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	masked := t.masked
	if cfg.masking != nil {
		masked = *cfg.masking
	}

	detail := ErrorDetail{Type: "UnknownError", Message: "No exception information available"}
	loc := unknownLocation
	traceback := ""
	if err != nil {
		detail = ErrorDetail{Type: TypeName(err), Message: err.Error()}
		st := stackFor(err)
		if len(st) > 0 {
			loc = frameLocation(st[0])
		}
		traceback = formatTraceback(ErrorText(err), st)
	}

	info := ErrorInfo{
		Success:      false,
		Error:        detail,
		Location:     loc,
		Timestamp:    t.now().Format(timestampLayout),
		InputContext: InputContext{UserInput: cfg.userInput, Params: cfg.params},
		Traceback:    traceback,
		ComputerInfo: unmaskedInfo(t.system),
	}
	if masked {
		info = info.Mask()
	}
	return info
}

// guardConversion keeps a fault inside report building from escaping.
func (t *Tracker) guardConversion(where string, r *result.Result) {
	if v := recover(); v != nil {
		*r = result.Fail(result.FormatError("PanicError", fmt.Sprint(v)), where, nil)
	}
}
