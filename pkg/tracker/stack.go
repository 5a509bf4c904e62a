package tracker

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

const trackerPkg = "github.com/tbot223/tbotcore/pkg/tracker."

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PanicError carries a recovered panic value and the stack of the panic site.
type PanicError struct {
	Value any
	stack []uintptr
}

// Recovered wraps a value returned by recover(). Call it from the deferred
// function itself so the captured stack still contains the panic frames.
func Recovered(v any) *PanicError {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	return &PanicError{Value: v, stack: trimPanicFrames(pcs[:n])}
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func (e *PanicError) StackTrace() errors.StackTrace {
	st := make(errors.StackTrace, len(e.stack))
	for i, pc := range e.stack {
		st[i] = errors.Frame(pc)
	}
	return st
}

// TypeName reports the panic value's type, or PanicError for non-error values.
func (e *PanicError) TypeName() string {
	if _, ok := e.Value.(error); ok {
		return fmt.Sprintf("%T", e.Value)
	}
	return "PanicError"
}

// trimPanicFrames drops everything up to runtime.gopanic and the runtime
// helpers that raised it, leaving the faulting function first.
func trimPanicFrames(pcs []uintptr) []uintptr {
	start := 0
	for i, pc := range pcs {
		if fn := runtime.FuncForPC(pc - 1); fn != nil && fn.Name() == "runtime.gopanic" {
			start = i + 1
			break
		}
	}
	for start < len(pcs) {
		fn := runtime.FuncForPC(pcs[start] - 1)
		if fn == nil || !strings.HasPrefix(fn.Name(), "runtime.") {
			break
		}
		start++
	}
	if start >= len(pcs) {
		return pcs
	}
	return pcs[start:]
}

// innermostStack returns the stack recorded closest to the root cause.
func innermostStack(err error) errors.StackTrace {
	var found errors.StackTrace
	for e := err; e != nil; e = next(e) {
		if st, ok := e.(stackTracer); ok {
			if trace := st.StackTrace(); len(trace) > 0 {
				found = trace
			}
		}
	}
	return found
}

func next(err error) error {
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return nil
}

// callerStack captures the current stack minus tracker frames, used when the
// fault carries no stack of its own.
func callerStack() errors.StackTrace {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	st := make(errors.StackTrace, 0, n)
	for _, pc := range pcs[:n] {
		fn := runtime.FuncForPC(pc - 1)
		if fn != nil && (strings.HasPrefix(fn.Name(), trackerPkg) || strings.HasPrefix(fn.Name(), "runtime.")) {
			continue
		}
		st = append(st, errors.Frame(pc))
	}
	return st
}

// Location is the source position of a fault.
type Location struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s, line %d, in %s", l.File, l.Line, l.Function)
}

var unknownLocation = Location{File: "Unknown", Line: -1, Function: "Unknown"}

func frameLocation(f errors.Frame) Location {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return unknownLocation
	}
	file, line := fn.FileLine(pc)
	return Location{File: file, Line: line, Function: shortFuncName(fn.Name())}
}

// shortFuncName strips the import path: a/b/pkg.(*T).M -> pkg.(*T).M
func shortFuncName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func formatTraceback(header string, st errors.StackTrace) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, f := range st {
		loc := frameLocation(f)
		fmt.Fprintf(&b, "  %s\n\t%s:%d\n", loc.Function, loc.File, loc.Line)
	}
	return b.String()
}
