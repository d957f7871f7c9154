package replication

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(vals ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		out[i] = json.RawMessage(v)
	}
	return out
}

func TestBindDecodesTypedArgs(t *testing.T) {
	reg := NewRegistry()
	var gotS string
	var gotN int
	Bind2(reg, "t", "SetPair", func(s string, n int) { gotS, gotN = s, n })

	h, ok := reg.Lookup("t", "SetPair", 2)
	require.True(t, ok)
	require.NoError(t, h(context.Background(), raws(`"x"`, `7`)))
	assert.Equal(t, "x", gotS)
	assert.Equal(t, 7, gotN)

	_, ok = reg.Lookup("t", "SetPair", 1)
	assert.False(t, ok)
}

func TestBindRejectsTypeMismatch(t *testing.T) {
	reg := NewRegistry()
	called := false
	Bind1(reg, "t", "SetFlag", func(bool) { called = true })
	h, _ := reg.Lookup("t", "SetFlag", 1)

	err := h(context.Background(), raws(`"yes"`))
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 0, argErr.Index)
	assert.False(t, called)
}

type ref struct {
	A string `json:"a"`
}

func TestNullHandling(t *testing.T) {
	reg := NewRegistry()
	var gotPtr *ref = &ref{}
	var gotStr = "init"
	Bind1(reg, "t", "SetRef", func(r *ref) { gotPtr = r })
	Bind1(reg, "t", "SetStr", func(s string) { gotStr = s })
	Bind1(reg, "t", "SetBool", func(bool) {})

	h, _ := reg.Lookup("t", "SetRef", 1)
	require.NoError(t, h(context.Background(), raws(`null`)))
	assert.Nil(t, gotPtr)

	h, _ = reg.Lookup("t", "SetStr", 1)
	require.NoError(t, h(context.Background(), raws(`null`)))
	assert.Equal(t, "", gotStr)

	h, _ = reg.Lookup("t", "SetBool", 1)
	assert.Error(t, h(context.Background(), raws(`null`)))
}

func TestUnknownFieldsRejected(t *testing.T) {
	reg := NewRegistry()
	Bind1(reg, "t", "SetRef", func(*ref) {})
	h, _ := reg.Lookup("t", "SetRef", 1)
	assert.Error(t, h(context.Background(), raws(`{"a":"x","b":1}`)))
}

func TestIsSetter(t *testing.T) {
	assert.True(t, IsSetter("SetUpdateAvailable"))
	assert.False(t, IsSetter("UpdateAvailable"))
	assert.False(t, IsSetter("Reset"))
}
