package ir

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name  string
		input any
		kind  Kind
		ok    bool
	}{
		{"string", "foo", KindString, true},
		{"int", 1, KindInt, true},
		{"int64", int64(1), KindInt, true},
		{"uint8", uint8(1), KindInt, true},
		{"float64", 1.5, KindFloat, true},
		{"float32", float32(1.5), KindFloat, true},
		{"bool", true, KindBool, true},
		{"time", time.Now(), KindTime, true},
		{"bytes", []byte("x"), KindBytes, true},
		{"key", NewKey("Widget", "42"), KindKey, true},
		{"nil", nil, "", false},
		{"map", map[string]any{}, "", false},
		{"struct", struct{ A int }{1}, "", false},
		{"slice", []string{"a"}, "", false},
		{"pointer", new(int), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestIsList(t *testing.T) {
	assert.True(t, IsList([]any{1, 2}))
	assert.True(t, IsList([]string{"a"}))
	assert.True(t, IsList([2]int{1, 2}))
	assert.False(t, IsList([]byte("abc")))
	assert.False(t, IsList("abc"))
	assert.False(t, IsList(nil))
}

func TestListElems(t *testing.T) {
	elems, err := ListElems([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, elems)

	_, err = ListElems(42)
	assert.Error(t, err)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 (surrogate pair D83D DE00) sorts before U+FF5E in UTF-16,
	// but after it in UTF-8 byte order.
	p := Properties{"\uff5e": 1, "\U0001F600": 2, "a": 3}
	assert.Equal(t, []string{"a", "\U0001F600", "\uff5e"}, p.SortedKeys())
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []Key{
		NewKey("Widget", "42"),
		NewKey("Widget", "a/b c"),
		NewKey("My Kind", ""),
		NewKey("Widget", "100%"),
	}

	for _, k := range tests {
		t.Run(k.String(), func(t *testing.T) {
			parsed, err := ParseKey(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, parsed)
		})
	}
}

func TestKeyStringOrder(t *testing.T) {
	assert.Less(t, NewKey("W", "a-1").String(), NewKey("W", "a_1").String())
	assert.Less(t, NewKey("W", "a_1").String(), NewKey("W", "a~").String())

	// escaping reorders names outside the unreserved set
	assert.Less(t, "a~", "a\u00e9")
	assert.Equal(t, "W/a%C3%A9", NewKey("W", "a\u00e9").String())
	assert.Greater(t, NewKey("W", "a~").String(), NewKey("W", "a\u00e9").String())
}

func TestParseKeyErrors(t *testing.T) {
	for _, s := range []string{"noseparator", "/name", "Widget/%zz"} {
		_, err := ParseKey(s)
		assert.Error(t, err, s)
	}
}

func TestKeyJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Key{"k": NewKey("Widget", "42")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"Widget/42"}`, string(data))

	var out map[string]Key
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, NewKey("Widget", "42"), out["k"])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 5, time.UTC)

	tests := []struct {
		name  string
		input any
		kind  Kind
		want  any
	}{
		{"string", "foo", KindString, "foo"},
		{"int", 7, KindInt, int64(7)},
		{"uint32", uint32(7), KindInt, int64(7)},
		{"float", 2.5, KindFloat, 2.5},
		{"bool", true, KindBool, true},
		{"time", ts, KindTime, ts},
		{"bytes", []byte{0, 1, 2}, KindBytes, []byte{0, 1, 2}},
		{"key", NewKey("User", "7"), KindKey, NewKey("User", "7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeValue(tt.input)
			require.NoError(t, err)

			// Go through JSON the way the store does
			data, err := MarshalCanonical(map[string]any{"v": encoded})
			require.NoError(t, err)
			var raw map[string]any
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			require.NoError(t, dec.Decode(&raw))

			decoded, err := DecodeValue(tt.kind, raw["v"])
			require.NoError(t, err)
			if want, ok := tt.want.(time.Time); ok {
				assert.True(t, want.Equal(decoded.(time.Time)))
				return
			}
			assert.Equal(t, tt.want, decoded)
		})
	}
}

func TestEncodeTimeSortsLexically(t *testing.T) {
	early, err := EncodeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	late, err := EncodeValue(time.Date(2024, 1, 1, 0, 0, 0, 500, time.FixedZone("X", 0)))
	require.NoError(t, err)
	assert.Less(t, early.(string), late.(string))
}

func TestEncodeBytesSortsInByteOrder(t *testing.T) {
	ordered := [][]byte{{}, {0x00}, {0x00, 0x01}, {0x0f}, {0x7f}, {0xfc}, {0xff, 0x00}}
	var prev string
	for i, b := range ordered {
		encoded, err := EncodeValue(b)
		require.NoError(t, err)
		if i > 0 {
			assert.Less(t, prev, encoded.(string), "%x", b)
		}
		prev = encoded.(string)
	}
}

func TestEncodeValueErrors(t *testing.T) {
	_, err := EncodeValue(uint64(1 << 63))
	assert.Error(t, err)

	_, err = EncodeValue(map[string]any{})
	assert.Error(t, err)

	_, err = DecodeValue(KindInt, "not a number")
	assert.Error(t, err)

	_, err = DecodeValue(Kind("complex"), "x")
	assert.Error(t, err)
}
