// Package appcore bundles application helpers: bounded worker pools, map
// value search, localized text lookup and process control.
package appcore

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/files"
	"github.com/tbot223/tbotcore/pkg/logsys"
	"github.com/tbot223/tbotcore/pkg/memory"
	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const DefaultLang = "en"

// langCacheSize bounds how many parsed language files stay in memory.
const langCacheSize = 16

type AppCore struct {
	baseDir     string
	langDir     string
	defaultLang string

	log     *logsys.Log
	files   *files.Manager
	tracker *tracker.Tracker

	langMu    sync.Mutex
	supported map[string]bool
	langCache *memory.LRU[string, map[string]any]

	console io.Writer
	exit    func(int)
	execve  func(argv0 string, argv []string, envv []string) error
}

type Option func(*AppCore)

// WithBaseDir sets the application directory. Defaults to the working directory.
func WithBaseDir(dir string) Option {
	return func(a *AppCore) { a.baseDir = dir }
}

// WithLanguagesDir sets where <lang>.json files live. Defaults to <base>/languages.
func WithLanguagesDir(dir string) Option {
	return func(a *AppCore) { a.langDir = dir }
}

// WithDefaultLang sets the fallback language for TextByLang.
func WithDefaultLang(lang string) Option {
	return func(a *AppCore) { a.defaultLang = lang }
}

func WithLog(l *logsys.Log) Option {
	return func(a *AppCore) { a.log = l }
}

func WithFileManager(m *files.Manager) Option {
	return func(a *AppCore) { a.files = m }
}

func WithTracker(t *tracker.Tracker) Option {
	return func(a *AppCore) { a.tracker = t }
}

// WithConsole sets where ClearConsole writes. Defaults to stdout.
func WithConsole(w io.Writer) Option {
	return func(a *AppCore) { a.console = w }
}

func New(opts ...Option) (*AppCore, error) {
	a := &AppCore{
		defaultLang: DefaultLang,
		langCache:   memory.NewLRU[string, map[string]any](langCacheSize),
		console:     os.Stdout,
		exit:        os.Exit,
		execve:      syscall.Exec,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.baseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		a.baseDir = cwd
	}
	if a.langDir == "" {
		a.langDir = filepath.Join(a.baseDir, "languages")
	}
	if a.tracker == nil {
		a.tracker = tracker.Default()
	}
	if a.log == nil {
		a.log = logsys.NewLog(nil)
	}
	if a.files == nil {
		a.files = files.New(files.WithBaseDir(a.baseDir), files.WithTracker(a.tracker))
	}

	a.langMu.Lock()
	a.supported = a.scanLanguages()
	langs := a.supportedLocked()
	a.langMu.Unlock()

	a.log.Message("info", "AppCore initialized.", zap.Strings("supported_languages", langs))
	return a, nil
}

func (a *AppCore) BaseDir() string      { return a.baseDir }
func (a *AppCore) LanguagesDir() string { return a.langDir }

func (a *AppCore) fail(err error, params map[string]any) result.Result {
	r := a.tracker.Return(err, tracker.WithParams(params))
	if text, ok := r.Err(); ok {
		a.log.Message("error", text)
	}
	return r
}
