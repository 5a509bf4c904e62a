package appcore

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const killWaitDelay = 500 * time.Millisecond

// CommandTask is an external command run by ProcessPool.
type CommandTask struct {
	Name  string
	Path  string
	Args  []string
	Dir   string
	Env   []string // appended to the current environment
	Stdin string
}

func (c CommandTask) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

func (c CommandTask) params() map[string]any {
	return map[string]any{"name": c.Name, "command": c.String(), "dir": c.Dir}
}

// CommandOutput is the success data for one ProcessPool item.
type CommandOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ProcessPool runs external commands concurrently, one OS process per task.
// Data is []result.Result in input order. A non-zero exit becomes a failure
// whose params include the captured output.
func (a *AppCore) ProcessPool(ctx context.Context, cmds []CommandTask, opts PoolOptions) (r result.Result) {
	defer tracker.Catch(a.tracker, &r)
	params := map[string]any{"tasks": len(cmds), "workers": opts.Workers, "override": opts.Override, "timeout": opts.Timeout.String()}

	if err := validatePool(len(cmds), opts); err != nil {
		return a.fail(errors.WithStack(err), params)
	}
	for i, c := range cmds {
		if strings.TrimSpace(c.Path) == "" {
			return a.fail(errors.WithStack(&ValidationError{
				Field:  "commands",
				Reason: errors.Errorf("item %d has no executable", i).Error(),
			}), params)
		}
	}

	workers := effectiveWorkers(opts.Workers)
	start := time.Now()
	results := runBounded(ctx, len(cmds), workers, func(ctx context.Context, i int) result.Result {
		return a.runCommand(ctx, cmds[i], opts.Timeout)
	})
	a.log.Message("debug", "process pool finished",
		zap.Int("tasks", len(cmds)), zap.Int("workers", workers), zap.Duration("elapsed", time.Since(start)))
	return result.OK(results)
}

func (a *AppCore) runCommand(ctx context.Context, c CommandTask, timeout time.Duration) result.Result {
	params := c.params()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // G204: running caller-chosen commands is the point
	cmd.Dir = c.Dir
	// Bounds the wait for output pipes held open by orphaned grandchildren
	// after a timeout kill.
	cmd.WaitDelay = killWaitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		params["stderr"] = out.Stderr
		return a.tracker.Return(errors.WithStack(ctx.Err()), tracker.WithParams(params))
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			params["stdout"] = out.Stdout
			params["stderr"] = out.Stderr
			params["exit_code"] = out.ExitCode
			return a.tracker.Return(errors.WithStack(&ExitCodeError{Command: c.String(), ExitCode: out.ExitCode}), tracker.WithParams(params))
		}
		return a.tracker.Return(errors.WithStack(err), tracker.WithParams(params))
	}
	return result.OK(out)
}
