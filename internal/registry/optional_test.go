package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesAbsentNullValue(t *testing.T) {
	type payload struct {
		Title  Optional[string] `json:"title"`
		Result Optional[int64]  `json:"resultItemId"`
	}

	var absent payload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.False(t, absent.Title.Present)
	require.False(t, absent.Result.Present)

	var nulled payload
	require.NoError(t, json.Unmarshal([]byte(`{"title":null,"resultItemId":null}`), &nulled))
	require.True(t, nulled.Title.Present)
	require.False(t, nulled.Title.Valid)
	require.True(t, nulled.Result.Present)
	require.False(t, nulled.Result.Valid)

	var set payload
	require.NoError(t, json.Unmarshal([]byte(`{"title":"盗窃案","resultItemId":3}`), &set))
	require.True(t, set.Title.Present)
	require.True(t, set.Title.Valid)
	require.Equal(t, "盗窃案", set.Title.Value)
	require.Equal(t, int64(3), set.Result.Value)
}

func TestOptionalOrSemantics(t *testing.T) {
	require.Equal(t, "current", Optional[string]{}.Or("current"))
	require.Equal(t, "", Null[string]().Or("current"))
	require.Equal(t, "new", Set("new").Or("current"))
}

func TestOptionalOrPtrSemantics(t *testing.T) {
	cur := "2024-01-05"

	require.Equal(t, &cur, Optional[string]{}.OrPtr(&cur))
	require.Nil(t, Null[string]().OrPtr(&cur))

	got := Set("2024-02-01").OrPtr(&cur)
	require.NotNil(t, got)
	require.Equal(t, "2024-02-01", *got)
}
