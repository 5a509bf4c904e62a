// Package result defines the uniform return value of every fallible toolkit operation.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
)

const unknownFailure = "Error :unknown failure"

// Result is an immutable success/error/context/data record.
// The zero value is a failure with no detail; build results with OK or Fail.
type Result struct {
	success bool
	err     *string
	context *string
	data    any
}

// OK returns a success result carrying data.
func OK(data any) Result {
	return Result{success: true, data: data}
}

// Fail returns a failure result. An empty errText is replaced so that a failure
// never has a null error. An empty context is stored as null.
func Fail(errText, context string, data any) Result {
	if errText == "" {
		errText = unknownFailure
	}
	r := Result{err: &errText, data: data}
	if context != "" {
		r.context = &context
	}
	return r
}

// Failf builds a failure from a type label and a formatted message using the
// "<Type> :<message>" layout.
func Failf(typeName, format string, args ...any) Result {
	return Fail(FormatError(typeName, fmt.Sprintf(format, args...)), "", nil)
}

// FormatError renders the error text layout shared by every failure.
func FormatError(typeName, message string) string {
	return typeName + " :" + message
}

func (r Result) Success() bool { return r.success }

// Err returns the error text and whether it is set.
func (r Result) Err() (string, bool) {
	if r.err == nil {
		if !r.success {
			return unknownFailure, true
		}
		return "", false
	}
	return *r.err, true
}

// Context returns the context text and whether it is set.
func (r Result) Context() (string, bool) {
	if r.context == nil {
		return "", false
	}
	return *r.context, true
}

func (r Result) Data() any { return r.data }

// Unwrap converts a failure into an error value. Returns nil on success.
func (r Result) Unwrap() error {
	if r.success {
		return nil
	}
	text, _ := r.Err()
	return &Error{Text: text, Result: r}
}

// DataAs returns the payload asserted to T.
func DataAs[T any](r Result) (T, bool) {
	v, ok := r.data.(T)
	return v, ok
}

// Error is the error form of a failed Result.
type Error struct {
	Text   string
	Result Result
}

func (e *Error) Error() string { return e.Text }

// FromError recovers the Result behind an error produced by Unwrap.
func FromError(err error) (Result, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Result, true
	}
	return Result{}, false
}

type wire struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Context *string `json:"context"`
	Data    any     `json:"data"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	w := wire{Success: r.success, Error: r.err, Context: r.context, Data: r.data}
	if !r.success && w.Error == nil {
		s := unknownFailure
		w.Error = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire layout. Data decodes to generic JSON values.
func (r *Result) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Success {
		*r = OK(w.Data)
		return nil
	}
	errText, ctx := "", ""
	if w.Error != nil {
		errText = *w.Error
	}
	if w.Context != nil {
		ctx = *w.Context
	}
	*r = Fail(errText, ctx, w.Data)
	return nil
}

func (r Result) String() string {
	if r.success {
		return fmt.Sprintf("Result(success=true, data=%v)", r.data)
	}
	text, _ := r.Err()
	ctx, _ := r.Context()
	return fmt.Sprintf("Result(success=false, error=%q, context=%q)", text, ctx)
}
