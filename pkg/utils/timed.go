package utils

import (
	"time"

	"go.uber.org/zap"
)

// Timed runs fn and logs how long it took.
func (u *Utils) Timed(name string, fn func() error) error {
	_, err := TimedValue(u, name, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// TimedValue runs fn, logs its duration at info level and returns fn's values
// unchanged.
func TimedValue[T any](u *Utils, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	elapsed := time.Since(start)
	u.log.Message("info", name+" ran for "+elapsed.String(),
		zap.String("func", name),
		zap.Duration("elapsed", elapsed),
		zap.Bool("ok", err == nil),
	)
	return v, err
}
