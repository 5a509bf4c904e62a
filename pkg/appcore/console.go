package appcore

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const clearSequence = "\033[H\033[2J\033[3J"

// ClearConsole writes the ANSI clear-screen sequence to the console.
func (a *AppCore) ClearConsole() (r result.Result) {
	defer tracker.Catch(a.tracker, &r)
	if _, err := io.WriteString(a.console, clearSequence); err != nil {
		return a.fail(errors.Wrap(err, "write clear sequence"), nil)
	}
	return result.OK("Console cleared successfully.")
}

// Exit flushes the log and terminates the process with code. It returns only
// on failure.
func (a *AppCore) Exit(code int) result.Result {
	if code < 0 || code > 255 {
		return a.fail(errors.WithStack(&ValidationError{Field: "code", Reason: "must be between 0 and 255"}),
			map[string]any{"code": code})
	}
	_ = a.log.Logger().Sync()
	a.exit(code)
	return a.fail(errors.Errorf("exit(%d) returned", code), map[string]any{"code": code})
}

// Restart replaces the current process with a fresh run of the same
// executable and arguments. It returns only on failure.
func (a *AppCore) Restart() result.Result {
	exe, err := os.Executable()
	if err != nil {
		return a.fail(errors.Wrap(err, "locate executable"), nil)
	}
	_ = a.log.Logger().Sync()
	if err := a.execve(exe, os.Args, os.Environ()); err != nil {
		return a.fail(errors.Wrapf(err, "exec %s", exe), map[string]any{"executable": exe})
	}
	return a.fail(errors.New("exec returned without error"), map[string]any{"executable": exe})
}
