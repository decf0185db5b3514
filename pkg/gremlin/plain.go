package gremlin

import (
	"fmt"
	"math"
	"time"
)

// Plain converts a decoded result into values that encode cleanly as JSON:
// maps get string keys, graph elements become objects and non-finite floats
// become their string form.
func Plain(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[plainKey(k)] = Plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Plain(val)
		}
		return out
	case *Vertex:
		m := map[string]any{"type": "vertex", "id": Plain(x.ID), "label": x.Label}
		if len(x.Properties) > 0 {
			props := make(map[string]any, len(x.Properties))
			for k, vps := range x.Properties {
				values := make([]any, len(vps))
				for i, vp := range vps {
					values[i] = Plain(vp.Value)
				}
				props[k] = values
			}
			m["properties"] = props
		}
		return m
	case *Edge:
		m := map[string]any{"type": "edge", "id": Plain(x.ID), "label": x.Label}
		if x.OutV != nil {
			m["outV"] = Plain(x.OutV.ID)
		}
		if x.InV != nil {
			m["inV"] = Plain(x.InV.ID)
		}
		if len(x.Properties) > 0 {
			props := make(map[string]any, len(x.Properties))
			for k, p := range x.Properties {
				props[k] = Plain(p.Value)
			}
			m["properties"] = props
		}
		return m
	case *VertexProperty:
		return map[string]any{"type": "vertexProperty", "id": Plain(x.ID), "label": x.Label, "value": Plain(x.Value)}
	case *Property:
		return map[string]any{"key": x.Key, "value": Plain(x.Value)}
	case *Path:
		return map[string]any{"labels": x.Labels, "objects": Plain(x.Objects)}
	case *Traverser:
		return map[string]any{"bulk": x.Bulk, "value": Plain(x.Value)}
	case T:
		return string(x)
	case Direction:
		return string(x)
	case float64:
		return plainFloat(x)
	case float32:
		return plainFloat(float64(x))
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

func plainFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func plainKey(k any) string {
	switch x := k.(type) {
	case string:
		return x
	case T:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
