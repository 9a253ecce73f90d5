package numbering

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalString_AbsentVsEmpty(t *testing.T) {
	absent := None()
	empty := Some("")

	assert.False(t, absent.IsSet())
	assert.True(t, empty.IsSet())
	assert.NotEqual(t, absent, empty)

	v, ok := empty.Get()
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = absent.Get()
	assert.False(t, ok)
}

func TestOptionalString_Ptr(t *testing.T) {
	assert.Nil(t, None().Ptr())

	p := Some("WH1").Ptr()
	require.NotNil(t, p)
	assert.Equal(t, "WH1", *p)

	// FromPtr is the inverse.
	assert.Equal(t, Some("WH1"), FromPtr(p))
	assert.Equal(t, None(), FromPtr(nil))
}

func TestOptionalString_MustGet(t *testing.T) {
	assert.Equal(t, "x", Some("x").MustGet())
	assert.Panics(t, func() { None().MustGet() })
}

func TestOptionalString_JSON(t *testing.T) {
	type payload struct {
		Prefix OptionalString `json:"prefix"`
	}

	t.Run("marshal", func(t *testing.T) {
		b, err := json.Marshal(payload{Prefix: Some("WH1")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"prefix":"WH1"}`, string(b))

		b, err = json.Marshal(payload{Prefix: None()})
		require.NoError(t, err)
		assert.JSONEq(t, `{"prefix":null}`, string(b))
	})

	t.Run("unmarshal", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"prefix":"WH1"}`), &p))
		assert.Equal(t, Some("WH1"), p.Prefix)

		p = payload{}
		require.NoError(t, json.Unmarshal([]byte(`{"prefix":null}`), &p))
		assert.Equal(t, None(), p.Prefix)

		p = payload{}
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.Equal(t, None(), p.Prefix)

		p = payload{}
		require.NoError(t, json.Unmarshal([]byte(`{"prefix":""}`), &p))
		assert.Equal(t, Some(""), p.Prefix)
	})
}
