package harness

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/roach88/querystore/internal/ir"
)

// convertValue maps a YAML-decoded value to a store value, honoring an
// optional type override.
func convertValue(raw any, typ string) (any, error) {
	switch typ {
	case "":
		if n, ok := raw.(int); ok {
			return int64(n), nil
		}
		return raw, nil
	case "float":
		switch n := raw.(type) {
		case int:
			return float64(n), nil
		case float64:
			return n, nil
		}
	case "time":
		switch t := raw.(type) {
		case time.Time:
			return t, nil
		case string:
			return time.Parse(time.RFC3339Nano, t)
		}
	case "bytes":
		if s, ok := raw.(string); ok {
			return base64.StdEncoding.DecodeString(s)
		}
	case "key":
		if s, ok := raw.(string); ok {
			return ir.ParseKey(s)
		}
	}
	return nil, fmt.Errorf("cannot convert %s to %s", ir.TypeName(raw), typ)
}
