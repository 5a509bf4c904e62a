package files

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/result"
)

// Op is the kind of change a watcher saw.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Event is a single file change inside a watched directory.
type Event struct {
	Path string
	Op   Op
}

func toEvent(ev fsnotify.Event) (Event, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Path: ev.Name, Op: OpCreate}, true
	case ev.Has(fsnotify.Write):
		return Event{Path: ev.Name, Op: OpWrite}, true
	case ev.Has(fsnotify.Remove):
		return Event{Path: ev.Name, Op: OpRemove}, true
	case ev.Has(fsnotify.Rename):
		return Event{Path: ev.Name, Op: OpRename}, true
	default:
		return Event{}, false
	}
}

// Watch calls fn for every change in dir until ctx is done. It blocks; run it
// in a goroutine. The returned Result reports why watching stopped: success
// on context cancellation.
func (m *Manager) Watch(ctx context.Context, dir string, fn func(Event)) result.Result {
	params := map[string]any{"dir": dir}
	target, err := m.resolve(dir)
	if err != nil {
		return m.fail(err, params)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return m.fail(errors.Wrap(err, "create watcher"), params)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Clean(target)); err != nil {
		return m.fail(errors.Wrapf(err, "watch %s", target), params)
	}

	for {
		select {
		case <-ctx.Done():
			return result.OK(nil)
		case ev, ok := <-w.Events:
			if !ok {
				return result.OK(nil)
			}
			if e, ok := toEvent(ev); ok {
				fn(e)
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return result.OK(nil)
			}
			m.log.Message("warn", "watch error: "+werr.Error())
		}
	}
}
