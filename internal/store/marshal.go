package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/querystore/internal/ir"
)

// marshalProperties converts properties to the two JSON TEXT columns:
// canonical encoded values and the kind of each value.
func marshalProperties(props ir.Properties) (string, string, error) {
	encoded := make(ir.Properties, len(props))
	kinds := make(map[string]string, len(props))

	for _, name := range props.SortedKeys() {
		v := props[name]
		kind, ok := ir.KindOf(v)
		if !ok {
			return "", "", fmt.Errorf("property %q: unsupported value type %s", name, ir.TypeName(v))
		}
		enc, err := ir.EncodeValue(v)
		if err != nil {
			return "", "", fmt.Errorf("property %q: %w", name, err)
		}
		encoded[name] = enc
		kinds[name] = string(kind)
	}

	propsJSON, err := ir.MarshalCanonical(encoded)
	if err != nil {
		return "", "", fmt.Errorf("marshal props: %w", err)
	}
	typesJSON, err := ir.MarshalCanonical(kinds)
	if err != nil {
		return "", "", fmt.Errorf("marshal types: %w", err)
	}
	return string(propsJSON), string(typesJSON), nil
}

// unmarshalProperties restores properties from the two JSON TEXT columns.
// Uses json.Number so int64 values beyond 2^53 survive.
func unmarshalProperties(propsJSON, typesJSON string) (ir.Properties, error) {
	raw := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader([]byte(propsJSON)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal props: %w", err)
	}

	var kinds map[string]string
	if err := json.Unmarshal([]byte(typesJSON), &kinds); err != nil {
		return nil, fmt.Errorf("unmarshal types: %w", err)
	}

	props := make(ir.Properties, len(raw))
	for name, value := range raw {
		kind, ok := kinds[name]
		if !ok {
			return nil, fmt.Errorf("property %q has no recorded kind", name)
		}
		decoded, err := ir.DecodeValue(ir.Kind(kind), value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = decoded
	}
	return props, nil
}
