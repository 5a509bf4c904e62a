package appcore

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tbot223/tbotcore/pkg/files"
	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

// scanLanguages lists <lang>.json stems. A missing directory means none.
func (a *AppCore) scanLanguages() map[string]bool {
	out := map[string]bool{}
	r := a.files.ListFiles(a.langDir, []string{".json"}, true)
	names, ok := result.DataAs[[]string](r)
	if !r.Success() || !ok {
		return out
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (a *AppCore) supportedLocked() []string {
	langs := make([]string, 0, len(a.supported))
	for l := range a.supported {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// SupportedLanguages returns the sorted language codes found on disk.
func (a *AppCore) SupportedLanguages() []string {
	a.langMu.Lock()
	defer a.langMu.Unlock()
	return a.supportedLocked()
}

// TextByLang returns the text stored under key in <lang>.json. Unsupported
// languages fall back to the default language. Files are cached after the
// first read.
func (a *AppCore) TextByLang(key, lang string) (r result.Result) {
	defer tracker.Catch(a.tracker, &r)

	a.langMu.Lock()
	defer a.langMu.Unlock()

	if !a.supported[lang] {
		lang = a.defaultLang
	}
	params := map[string]any{"key": key, "lang": lang}

	texts, ok := a.langCache.Get(lang)
	if !ok {
		var doc map[string]any
		read := a.files.ReadJSON(filepath.Join(a.langDir, lang+".json"), &doc)
		if !read.Success() {
			return read
		}
		texts = doc
		if evicted, ok := a.langCache.Set(lang, texts); ok {
			a.log.Message("debug", "language evicted from cache", zap.String("lang", evicted))
		}
	}

	v, ok := texts[key]
	if !ok {
		return a.fail(errors.WithStack(&TextKeyError{Key: key, Lang: lang}), params)
	}
	return result.OK(v)
}

// InvalidateLanguage drops the cached file for lang and rescans the directory.
func (a *AppCore) InvalidateLanguage(lang string) {
	a.langMu.Lock()
	defer a.langMu.Unlock()
	a.langCache.Delete(lang)
	a.supported = a.scanLanguages()
}

// WatchLanguages reloads language files as they change on disk until ctx is
// done. It blocks; run it in a goroutine.
func (a *AppCore) WatchLanguages(ctx context.Context) result.Result {
	if r := a.files.CreateDirectory(a.langDir); !r.Success() {
		return r
	}
	return a.files.Watch(ctx, a.langDir, func(e files.Event) {
		name := filepath.Base(e.Path)
		if !strings.EqualFold(filepath.Ext(name), ".json") {
			return
		}
		lang := strings.TrimSuffix(name, filepath.Ext(name))
		a.InvalidateLanguage(lang)
		a.log.Message("debug", "language file changed", zap.String("lang", lang), zap.String("op", string(e.Op)))
	})
}
