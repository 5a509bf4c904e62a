package result

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK_HasNoErrorOrContext(t *testing.T) {
	for _, data := range []any{nil, 42, "x", []int{1, 2}, map[string]any{"a": 1}} {
		r := OK(data)
		require.True(t, r.Success())
		_, hasErr := r.Err()
		assert.False(t, hasErr)
		_, hasCtx := r.Context()
		assert.False(t, hasCtx)
		assert.Equal(t, data, r.Data())
		assert.NoError(t, r.Unwrap())
	}
}

func TestFail_AlwaysCarriesError(t *testing.T) {
	r := Fail("ValueError :bad input", "main.go, line 3, in main", nil)
	require.False(t, r.Success())
	text, ok := r.Err()
	require.True(t, ok)
	assert.Equal(t, "ValueError :bad input", text)
	ctx, ok := r.Context()
	require.True(t, ok)
	assert.Equal(t, "main.go, line 3, in main", ctx)

	empty := Fail("", "", nil)
	text, ok = empty.Err()
	require.True(t, ok)
	assert.Equal(t, unknownFailure, text)
	_, ok = empty.Context()
	assert.False(t, ok)

	var zero Result
	assert.False(t, zero.Success())
	_, ok = zero.Err()
	assert.True(t, ok)
}

func TestFailf_UsesTypeLayout(t *testing.T) {
	r := Failf("KeyError", "key %q not found", "k")
	text, _ := r.Err()
	assert.Equal(t, `KeyError :key "k" not found`, text)
}

func TestUnwrap_RoundTripsThroughError(t *testing.T) {
	r := Fail("IOError :disk full", "", 7)
	err := r.Unwrap()
	require.Error(t, err)
	assert.Equal(t, "IOError :disk full", err.Error())

	wrapped := errors.Join(errors.New("outer"), err)
	back, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 7, back.Data())

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
}

func TestDataAs(t *testing.T) {
	r := OK([]string{"a"})
	v, ok := DataAs[[]string](r)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	_, ok = DataAs[int](r)
	assert.False(t, ok)
}

func TestJSONLayout(t *testing.T) {
	b, err := json.Marshal(OK(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"error":null,"context":null,"data":{"n":1}}`, string(b))

	b, err = json.Marshal(Fail("E :m", "f.go, line 1, in f", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"E :m","context":"f.go, line 1, in f","data":null}`, string(b))

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.False(t, back.Success())
	text, _ := back.Err()
	assert.Equal(t, "E :m", text)
}
