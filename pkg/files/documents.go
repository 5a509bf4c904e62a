package files

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

const defaultJSONIndent = 4

func checkExt(path string, exts ...string) error {
	got := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if got == e {
			return nil
		}
	}
	return &ExtensionError{Path: path, Want: exts}
}

// WriteJSON atomically writes v as indented JSON. indent <= 0 means 4 spaces.
// HTML characters are not escaped.
func (m *Manager) WriteJSON(path string, v any, indent int) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path}
	if indent <= 0 {
		indent = defaultJSONIndent
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(v); err != nil {
		return m.fail(errors.Wrap(err, "encode json"), params)
	}
	if w := m.AtomicWrite(path, buf.Bytes()); !w.Success() {
		return w
	}
	return result.OK("Successfully wrote JSON to " + m.Resolve(path))
}

// ReadJSON decodes a .json file. When out is non-nil the document is decoded
// into it and returned as data; otherwise data is the generic JSON value.
func (m *Manager) ReadJSON(path string, out any) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path}

	target, err := m.resolve(path)
	if err != nil {
		return m.fail(err, params)
	}
	if _, err := os.Stat(target); err != nil {
		return m.fail(errors.WithStack(err), params)
	}
	if err := checkExt(target, ".json"); err != nil {
		return m.fail(err, params)
	}

	raw := m.ReadFile(target)
	if !raw.Success() {
		return raw
	}
	b, _ := result.DataAs[[]byte](raw)

	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return m.fail(errors.Wrap(err, "decode json"), params)
		}
		return result.OK(out)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return m.fail(errors.Wrap(err, "decode json"), params)
	}
	return result.OK(v)
}

// WriteYAML atomically writes v as YAML (.yaml or .yml).
func (m *Manager) WriteYAML(path string, v any) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path}
	if err := checkExt(path, ".yaml", ".yml"); err != nil {
		return m.fail(err, params)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return m.fail(errors.Wrap(err, "encode yaml"), params)
	}
	if err := enc.Close(); err != nil {
		return m.fail(errors.Wrap(err, "encode yaml"), params)
	}
	if w := m.AtomicWrite(path, buf.Bytes()); !w.Success() {
		return w
	}
	return result.OK("Successfully wrote YAML to " + m.Resolve(path))
}

// ReadYAML decodes a .yaml/.yml file, into out when non-nil.
func (m *Manager) ReadYAML(path string, out any) (r result.Result) {
	defer tracker.Catch(m.tracker, &r)
	params := map[string]any{"path": path}
	if err := checkExt(path, ".yaml", ".yml"); err != nil {
		return m.fail(err, params)
	}

	raw := m.ReadFile(path)
	if !raw.Success() {
		return raw
	}
	b, _ := result.DataAs[[]byte](raw)

	if out != nil {
		if err := yaml.Unmarshal(b, out); err != nil {
			return m.fail(errors.Wrap(err, "decode yaml"), params)
		}
		return result.OK(out)
	}
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return m.fail(errors.Wrap(err, "decode yaml"), params)
	}
	return result.OK(v)
}
