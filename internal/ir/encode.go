package ir

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TimeLayout is the storage form of KindTime values: UTC with a fixed
// nanosecond width so lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EncodeValue converts a supported value to its JSON-native storage form.
//
//	string  -> string (NFC)
//	int*    -> int64
//	float*  -> float64
//	bool    -> bool
//	time    -> string (TimeLayout, UTC)
//	[]byte  -> string (lowercase hex, byte order preserved)
//	Key     -> string (Key.String)
//
// The same encoding is applied to stored properties and to query
// parameters, so the store compares like with like.
func EncodeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val), nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return uintToInt64(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt64(val)
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case bool:
		return val, nil
	case time.Time:
		return val.UTC().Format(TimeLayout), nil
	case []byte:
		return hex.EncodeToString(val), nil
	case Key:
		return val.String(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", TypeName(v))
	}
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return int64(u), nil
}

func checkFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v cannot be stored", f)
	}
	return f, nil
}

// DecodeValue restores a stored value of the given kind.
// raw is what encoding/json produces with UseNumber enabled:
// string, json.Number or bool.
func DecodeValue(kind Kind, raw any) (any, error) {
	switch kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return s, nil
	case KindInt:
		n, ok := raw.(json.Number)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return n.Int64()
	case KindFloat:
		n, ok := raw.(json.Number)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return n.Float64()
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return b, nil
	case KindTime:
		s, ok := raw.(string)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return time.Parse(TimeLayout, s)
	case KindBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return hex.DecodeString(s)
	case KindKey:
		s, ok := raw.(string)
		if !ok {
			return nil, decodeErr(kind, raw)
		}
		return ParseKey(s)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

func decodeErr(kind Kind, raw any) error {
	return fmt.Errorf("cannot decode %s from %s", kind, TypeName(raw))
}
