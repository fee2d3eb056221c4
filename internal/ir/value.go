package ir

import (
	"fmt"
	"reflect"
	"slices"
	"time"
	"unicode/utf16"
)

// Kind names a store-supported primitive value kind.
//
// The set is closed: a filter value or entity property whose runtime type
// does not map to one of these kinds cannot be handed to the store.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindBytes  Kind = "bytes"
	KindKey    Kind = "key"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindString, KindInt, KindFloat, KindBool, KindTime, KindBytes, KindKey}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// KindOf classifies the runtime type of v.
// Returns false for anything outside the allow-list, including nil,
// maps, structs and slices other than []byte.
func KindOf(v any) (Kind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt, true
	case float32, float64:
		return KindFloat, true
	case bool:
		return KindBool, true
	case time.Time:
		return KindTime, true
	case []byte:
		return KindBytes, true
	case Key:
		return KindKey, true
	default:
		return "", false
	}
}

// TypeName returns a readable name for the runtime type of v,
// used in error messages about unsupported values.
func TypeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

// IsList reports whether v is a slice or array that should be treated as a
// list of values. []byte is a scalar (KindBytes), not a list.
func IsList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// ListElems returns the elements of a list value as []any.
// Returns an error if v is not a list (see IsList).
func ListElems(v any) ([]any, error) {
	if !IsList(v) {
		return nil, fmt.Errorf("value of type %s is not a list", TypeName(v))
	}
	if elems, ok := v.([]any); ok {
		return elems, nil
	}
	rv := reflect.ValueOf(v)
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, nil
}

// Properties holds an entity's stored fields.
// Use SortedKeys() for deterministic iteration.
type Properties map[string]any

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings orders by UTF-8 bytes, which differs outside the BMP.
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy of p. A nil map clones to an empty one.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// Equal prefix: shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
