package commands

import (
	"log/slog"

	"github.com/tbot223/tbotcore/internal/app"
	"github.com/tbot223/tbotcore/pkg/appcore"
	"github.com/tbot223/tbotcore/pkg/files"
	"github.com/tbot223/tbotcore/pkg/logsys"
	"github.com/tbot223/tbotcore/pkg/tracker"
	"github.com/tbot223/tbotcore/pkg/utils"
)

const cliLoggerName = "tbotcore"

// toolkit is the set of components one command invocation works with.
type toolkit struct {
	rt      app.Runtime
	tracker *tracker.Tracker
	logs    *logsys.Manager
	log     *logsys.Log
	files   *files.Manager
	utils   *utils.Utils
}

func newToolkit() (*toolkit, error) {
	rt, err := app.EffectiveRuntime()
	if err != nil {
		return nil, err
	}
	t := tracker.New(tracker.Masked(rt.MaskComputerInfo))
	logs := logsys.NewManager(rt.LogDir, "cli", logsys.WithTracker(t))

	log := logsys.NewLog(nil, logsys.LogTracker(t))
	if r := logs.MakeLogger(cliLoggerName, rt.LogLevel); r.Success() {
		if l, ok := logs.Logger(cliLoggerName); ok {
			log = logsys.NewLog(l, logsys.LogTracker(t))
		}
	} else {
		text, _ := r.Err()
		slog.Warn("file logging disabled", "error", text)
	}

	return &toolkit{
		rt:      rt,
		tracker: t,
		logs:    logs,
		log:     log,
		files:   files.New(files.WithLog(log), files.WithTracker(t)),
		utils:   utils.New(utils.WithLog(log), utils.WithTracker(t)),
	}, nil
}

func (k *toolkit) appCore() (*appcore.AppCore, error) {
	return appcore.New(
		appcore.WithLanguagesDir(k.rt.LanguagesDir),
		appcore.WithDefaultLang(k.rt.DefaultLang),
		appcore.WithLog(k.log),
		appcore.WithFileManager(k.files),
		appcore.WithTracker(k.tracker),
	)
}

func (k *toolkit) Close() {
	_ = k.logs.Close()
}

// withToolkit builds a toolkit for the duration of fn.
func withToolkit(fn func(k *toolkit) error) error {
	k, err := newToolkit()
	if err != nil {
		return cmdErr(err)
	}
	defer k.Close()
	return fn(k)
}
