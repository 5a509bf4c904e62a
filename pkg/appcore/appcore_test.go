package appcore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCore(t *testing.T, opts ...Option) *AppCore {
	t.Helper()
	base := t.TempDir()
	opts = append([]Option{WithBaseDir(base), WithTracker(tracker.New(tracker.Masked(true)))}, opts...)
	a, err := New(opts...)
	require.NoError(t, err)
	return a
}

func writeLang(t *testing.T, dir, lang, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, lang+".json"), []byte(body), 0o600))
}

func errText(t *testing.T, r result.Result) string {
	t.Helper()
	text, ok := r.Err()
	require.True(t, ok)
	return text
}

func TestNew_Defaults(t *testing.T) {
	a := newTestCore(t)
	assert.Equal(t, filepath.Join(a.BaseDir(), "languages"), a.LanguagesDir())
	assert.Empty(t, a.SupportedLanguages())
}

func TestNew_ScansLanguages(t *testing.T) {
	base := t.TempDir()
	langs := filepath.Join(base, "languages")
	writeLang(t, langs, "ko", `{}`)
	writeLang(t, langs, "en", `{}`)
	require.NoError(t, os.WriteFile(filepath.Join(langs, "notes.txt"), []byte("x"), 0o600))

	a, err := New(WithBaseDir(base))
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "ko"}, a.SupportedLanguages())
}

func TestTextByLang(t *testing.T) {
	base := t.TempDir()
	langs := filepath.Join(base, "languages")
	writeLang(t, langs, "en", `{"greeting": "Hello", "farewell": "Bye"}`)
	writeLang(t, langs, "ko", `{"greeting": "안녕하세요"}`)
	a, err := New(WithBaseDir(base))
	require.NoError(t, err)

	r := a.TextByLang("greeting", "ko")
	require.True(t, r.Success())
	assert.Equal(t, "안녕하세요", r.Data())

	r = a.TextByLang("greeting", "fr")
	require.True(t, r.Success(), "unsupported language falls back to the default")
	assert.Equal(t, "Hello", r.Data())

	r = a.TextByLang("farewell", "ko")
	require.False(t, r.Success())
	assert.Equal(t, "KeyError :Key 'farewell' not found in language 'ko'", errText(t, r))
}

func TestTextByLang_CachesUntilInvalidated(t *testing.T) {
	base := t.TempDir()
	langs := filepath.Join(base, "languages")
	writeLang(t, langs, "en", `{"greeting": "Hello"}`)
	a, err := New(WithBaseDir(base))
	require.NoError(t, err)

	require.Equal(t, "Hello", a.TextByLang("greeting", "en").Data())
	writeLang(t, langs, "en", `{"greeting": "Howdy"}`)
	assert.Equal(t, "Hello", a.TextByLang("greeting", "en").Data())

	a.InvalidateLanguage("en")
	assert.Equal(t, "Howdy", a.TextByLang("greeting", "en").Data())
}

func TestWatchLanguages(t *testing.T) {
	base := t.TempDir()
	langs := filepath.Join(base, "languages")
	writeLang(t, langs, "en", `{"greeting": "Hello"}`)
	a, err := New(WithBaseDir(base))
	require.NoError(t, err)
	require.Equal(t, "Hello", a.TextByLang("greeting", "en").Data())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var watched result.Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		watched = a.WatchLanguages(ctx)
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(langs, "de.json"), []byte(`{"greeting": "Hallo"}`), 0o600)
		_ = os.WriteFile(filepath.Join(langs, "en.json"), []byte(`{"greeting": "Hi"}`), 0o600)
		return a.TextByLang("greeting", "en").Data() == "Hi"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, a.SupportedLanguages(), "de")

	cancel()
	wg.Wait()
	assert.True(t, watched.Success())
}

func TestFindKeysByValue(t *testing.T) {
	a := newTestCore(t)
	m := map[string]any{
		"a": 1,
		"b": 2.5,
		"c": "apple",
		"d": true,
		"e": []int{1, 2},
		"f": map[string]any{"x": 3, "y": "banana", "z": map[string]any{"deep": 10}},
		"g": uint8(2),
	}

	cases := []struct {
		name       string
		threshold  any
		comparison string
		nested     bool
		want       []string
	}{
		{"eq number", 1, "eq", false, []string{"a"}},
		{"ge number", 2, "ge", false, []string{"b", "g"}},
		{"lt number nested", 5, "lt", true, []string{"a", "b", "f.x", "g"}},
		{"gt nested deep", 5, "gt", true, []string{"f.z.deep"}},
		{"string ordered", "b", "lt", true, []string{"c"}},
		{"string eq nested", "banana", "eq", true, []string{"f.y"}},
		{"bool eq", true, "eq", false, []string{"d"}},
		{"mixed kinds ne", "apple", "ne", false, []string{"a", "b", "d", "g"}},
		{"float threshold", 2.0, "eq", false, []string{"g"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := a.FindKeysByValue(m, tc.threshold, tc.comparison, tc.nested)
			require.True(t, r.Success(), r.String())
			assert.Equal(t, tc.want, r.Data())
		})
	}
}

func TestFindKeysByValue_Validation(t *testing.T) {
	a := newTestCore(t)
	m := map[string]any{"a": 1}

	r := a.FindKeysByValue(m, 1, "between", false)
	require.False(t, r.Success())
	assert.Contains(t, errText(t, r), "unsupported operator: between")

	r = a.FindKeysByValue(m, []int{1}, "eq", false)
	require.False(t, r.Success())
	assert.Contains(t, errText(t, r), "threshold must be a string, bool or number")

	r = a.FindKeysByValue(nil, 1, "eq", false)
	require.False(t, r.Success())

	r = a.FindKeysByValue(map[string]any{}, 1, "eq", false)
	require.True(t, r.Success())
	assert.Equal(t, []string{}, r.Data())
}

func TestClearConsole(t *testing.T) {
	var buf bytes.Buffer
	a := newTestCore(t, WithConsole(&buf))
	r := a.ClearConsole()
	require.True(t, r.Success())
	assert.Equal(t, "Console cleared successfully.", r.Data())
	assert.Equal(t, clearSequence, buf.String())
}

func TestExit(t *testing.T) {
	a := newTestCore(t)
	var got []int
	a.exit = func(code int) { got = append(got, code) }

	r := a.Exit(2)
	require.False(t, r.Success(), "Exit only returns when the process survived")
	assert.Equal(t, []int{2}, got)

	r = a.Exit(300)
	require.False(t, r.Success())
	assert.Contains(t, errText(t, r), "code must be between 0 and 255")
	assert.Equal(t, []int{2}, got)
}

func TestRestart(t *testing.T) {
	a := newTestCore(t)
	var argv0 string
	var argv []string
	a.execve = func(path string, args, _ []string) error {
		argv0, argv = path, args
		return errors.New("exec format error")
	}

	r := a.Restart()
	require.False(t, r.Success())
	assert.Contains(t, errText(t, r), "exec format error")
	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, exe, argv0)
	assert.Equal(t, os.Args, argv)
}
