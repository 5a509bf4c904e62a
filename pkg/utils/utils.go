// Package utils holds small Result-returning helpers: path conversion,
// digests, PBKDF2 password hashing and runtime timing.
package utils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/logsys"
	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

type Utils struct {
	log     *logsys.Log
	tracker *tracker.Tracker
}

type Option func(*Utils)

func WithLog(l *logsys.Log) Option {
	return func(u *Utils) { u.log = l }
}

func WithTracker(t *tracker.Tracker) Option {
	return func(u *Utils) { u.tracker = t }
}

func New(opts ...Option) *Utils {
	u := &Utils{}
	for _, opt := range opts {
		opt(u)
	}
	if u.tracker == nil {
		u.tracker = tracker.Default()
	}
	if u.log == nil {
		u.log = logsys.NewLog(nil)
	}
	return u
}

// StrToPath cleans s into a file system path. Data is the cleaned string.
func (u *Utils) StrToPath(s string) result.Result {
	if strings.TrimSpace(s) == "" {
		return u.tracker.Return(errors.New("path string cannot be empty"),
			tracker.WithUserInput(s))
	}
	return result.OK(filepath.Clean(s))
}
