package appcore

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

type valueKind int

const (
	kindOther valueKind = iota
	kindNumber
	kindString
	kindBool
	kindList
	kindMap
)

type scalar struct {
	kind valueKind
	num  float64
	str  string
	b    bool
}

func classify(v any) scalar {
	if v == nil {
		return scalar{kind: kindOther}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{kind: kindNumber, num: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalar{kind: kindNumber, num: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return scalar{kind: kindNumber, num: rv.Float()}
	case reflect.String:
		return scalar{kind: kindString, str: rv.String()}
	case reflect.Bool:
		return scalar{kind: kindBool, b: rv.Bool()}
	case reflect.Slice, reflect.Array:
		return scalar{kind: kindList}
	case reflect.Map:
		return scalar{kind: kindMap}
	default:
		return scalar{kind: kindOther}
	}
}

// cmp returns -1, 0 or 1. ok is false when the kinds are not ordered against
// each other.
func (s scalar) cmp(o scalar) (int, bool) {
	if s.kind != o.kind {
		return 0, false
	}
	switch s.kind {
	case kindNumber:
		switch {
		case s.num < o.num:
			return -1, true
		case s.num > o.num:
			return 1, true
		}
		return 0, true
	case kindString:
		switch {
		case s.str < o.str:
			return -1, true
		case s.str > o.str:
			return 1, true
		}
		return 0, true
	case kindBool:
		switch {
		case s.b == o.b:
			return 0, true
		case !s.b:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

//nolint:gochecknoglobals // fixed lookup table
var comparisons = map[string]func(c int, ordered bool) bool{
	"eq": func(c int, ok bool) bool { return ok && c == 0 },
	"ne": func(c int, ok bool) bool { return !ok || c != 0 },
	"lt": func(c int, ok bool) bool { return ok && c < 0 },
	"le": func(c int, ok bool) bool { return ok && c <= 0 },
	"gt": func(c int, ok bool) bool { return ok && c > 0 },
	"ge": func(c int, ok bool) bool { return ok && c >= 0 },
}

// FindKeysByValue returns the keys of m whose values satisfy
// "value <comparison> threshold". Supported comparisons: eq ne lt le gt ge.
// Numbers compare numerically and strings lexically; values of a different
// kind than threshold only match "ne". List values are skipped. With nested,
// map values are searched too and their keys reported as dotted paths. Data
// is the sorted []string of matches.
func (a *AppCore) FindKeysByValue(m map[string]any, threshold any, comparison string, nested bool) (r result.Result) {
	defer tracker.Catch(a.tracker, &r)
	params := map[string]any{"threshold": threshold, "comparison": comparison, "nested": nested}

	match, ok := comparisons[comparison]
	if !ok {
		return a.fail(errors.WithStack(&ValidationError{
			Field: "comparison", Reason: "unsupported operator: " + comparison,
		}), params)
	}
	if m == nil {
		return a.fail(errors.WithStack(&ValidationError{Field: "map", Reason: "must not be nil"}), params)
	}
	want := classify(threshold)
	switch want.kind {
	case kindNumber, kindString, kindBool:
	default:
		return a.fail(errors.WithStack(&ValidationError{
			Field: "threshold", Reason: "must be a string, bool or number",
		}), params)
	}

	found := lookup(m, "", want, match, nested)
	sort.Strings(found)
	return result.OK(found)
}

func lookup(m map[string]any, prefix string, want scalar, match func(int, bool) bool, nested bool) []string {
	found := []string{}
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		got := classify(v)
		switch got.kind {
		case kindList:
			continue
		case kindMap:
			if sub, ok := v.(map[string]any); ok && nested {
				found = append(found, lookup(sub, path, want, match, nested)...)
			}
			continue
		}
		if match(got.cmp(want)) {
			found = append(found, path)
		}
	}
	return found
}
