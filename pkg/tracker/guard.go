package tracker

import "github.com/tbot223/tbotcore/pkg/result"

// Guard runs fn and converts its error or panic into a failure Result.
// On success the Result carries fn's value.
func Guard[T any](t *Tracker, fn func() (T, error), opts ...InfoOption) (r result.Result) {
	if t == nil {
		t = Default()
	}
	defer func() {
		if v := recover(); v != nil {
			r = t.Return(Recovered(v), opts...)
		}
	}()
	v, err := fn()
	if err != nil {
		return t.Return(err, opts...)
	}
	return result.OK(v)
}

// Wrap returns a function with fn's argument that never panics and reports
// through Results. The argument is recorded as the report's user input.
func Wrap[A, T any](t *Tracker, fn func(A) (T, error), opts ...InfoOption) func(A) result.Result {
	return func(arg A) result.Result {
		callOpts := append([]InfoOption{WithUserInput(arg)}, opts...)
		return Guard(t, func() (T, error) { return fn(arg) }, callOpts...)
	}
}

// Catch recovers a panic into *r. Use as `defer tracker.Catch(t, &r)` at the
// top of an operation that returns a named Result.
func Catch(t *Tracker, r *result.Result, opts ...InfoOption) {
	if v := recover(); v != nil {
		if t == nil {
			t = Default()
		}
		*r = t.Return(Recovered(v), opts...)
	}
}
