package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/pkg/appcore"
)

func NewRunCmd() *cobra.Command {
	var (
		workers  int
		timeout  time.Duration
		override bool
		dir      string
	)
	cmd := &cobra.Command{
		Use:   "run -- <cmd> [args...] [; <cmd> [args...]]...",
		Short: "Run ';'-separated commands concurrently in a bounded process pool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := parseCommandList(args, dir)
			if err != nil {
				return cmdErr(err)
			}
			return withToolkit(func(k *toolkit) error {
				core, err := k.appCore()
				if err != nil {
					return cmdErr(err)
				}
				if !cmd.Flags().Changed("workers") {
					// The configured pool size is a ceiling, not a demand.
					workers, override = k.rt.Workers, true
				}
				opts := appcore.PoolOptions{Workers: workers, Override: override, Timeout: timeout}
				return emit(core.ProcessPool(cmdContext(cmd), tasks, opts))
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent processes (default: workers from config, then 2x CPUs)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-command timeout (e.g. 30s)")
	cmd.Flags().BoolVar(&override, "override", false, "Allow more workers than commands")
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory for every command")
	return cmd
}

// parseCommandList splits args on ";" tokens (or a trailing ";" on a token)
// into one CommandTask per command.
func parseCommandList(args []string, dir string) ([]appcore.CommandTask, error) {
	var (
		tasks []appcore.CommandTask
		cur   []string
	)
	flush := func() {
		if len(cur) > 0 {
			tasks = append(tasks, appcore.CommandTask{
				Name: fmt.Sprintf("cmd%d", len(tasks)),
				Path: cur[0],
				Args: cur[1:],
				Dir:  dir,
			})
		}
		cur = nil
	}
	for _, a := range args {
		for a != "" {
			i := strings.Index(a, ";")
			if i < 0 {
				cur = append(cur, a)
				break
			}
			if head := a[:i]; head != "" {
				cur = append(cur, head)
			}
			flush()
			a = a[i+1:]
		}
	}
	flush()
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no commands given")
	}
	return tasks, nil
}
