package ir

import (
	"fmt"
	"net/url"
	"strings"
)

// Key is the opaque identity of an entity: the kind it belongs to plus a
// name unique within that kind.
//
// Key is comparable and may be used as a filter value (KindKey) or as a
// stored property referencing another entity.
type Key struct {
	Kind string
	Name string
}

// NewKey builds an identity key from a kind and the string form of an id.
func NewKey(kind, name string) Key {
	return Key{Kind: kind, Name: name}
}

// String returns the reversible encoding "kind/name" with both parts
// path-escaped, so '/' inside a part never splits it.
// Within a kind, names made of unreserved characters (letters, digits,
// '-', '.', '_', '~') sort in name order; escaped names sort by their
// %XX form instead.
func (k Key) String() string {
	return url.PathEscape(k.Kind) + "/" + url.PathEscape(k.Name)
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.Kind == "" && k.Name == ""
}

// ParseKey decodes a key produced by Key.String.
func ParseKey(s string) (Key, error) {
	kind, name, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("parse key %q: missing separator", s)
	}
	k, err := url.PathUnescape(kind)
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: kind: %w", s, err)
	}
	n, err := url.PathUnescape(name)
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: name: %w", s, err)
	}
	if k == "" {
		return Key{}, fmt.Errorf("parse key %q: empty kind", s)
	}
	return Key{Kind: k, Name: n}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Entity is a raw record as returned by the store.
// Keys-only queries return entities with nil Properties.
type Entity struct {
	Key        Key
	Properties Properties
}
