package gremlin

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// GraphSON v3 type names.
const (
	typeByte           = "gx:Byte"
	typeInt16          = "gx:Int16"
	typeInt32          = "g:Int32"
	typeInt64          = "g:Int64"
	typeFloat          = "g:Float"
	typeDouble         = "g:Double"
	typeDate           = "g:Date"
	typeTimestamp      = "g:Timestamp"
	typeUUID           = "g:UUID"
	typeList           = "g:List"
	typeSet            = "g:Set"
	typeMap            = "g:Map"
	typeT              = "g:T"
	typeDirection      = "g:Direction"
	typeCardinality    = "g:Cardinality"
	typeOrder          = "g:Order"
	typeColumn         = "g:Column"
	typeVertex         = "g:Vertex"
	typeEdge           = "g:Edge"
	typeVertexProperty = "g:VertexProperty"
	typeProperty       = "g:Property"
	typePath           = "g:Path"
	typeTraverser      = "g:Traverser"
	typeBulkSet        = "g:BulkSet"
	typeBytecode       = "g:Bytecode"
	typeP              = "g:P"
	typeTextP          = "g:TextP"
)

// Decode parses a GraphSON v3 document into Go values.
//
// Typed values map as follows: gx:Byte to int8, gx:Int16 to int16, g:Int32
// to int32, g:Int64 to int64, g:Float to float32, g:Double to float64,
// g:Date and g:Timestamp to time.Time (UTC), g:UUID to uuid.UUID, g:List and
// g:Set to []any, g:Map to map[any]any and graph elements to their pointer
// types. Untyped JSON numbers become int64
// when integral and float64 otherwise.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid GraphSON")
	}
	return decodeValue(v)
}

func decodeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		return plainNumber(x)
	case []any:
		return decodeList(x)
	case map[string]any:
		typ, ok := x["@type"].(string)
		if !ok {
			out := make(map[string]any, len(x))
			for k, val := range x {
				d, err := decodeValue(val)
				if err != nil {
					return nil, err
				}
				out[k] = d
			}
			return out, nil
		}
		return decodeTyped(typ, x["@value"])
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unexpected GraphSON value %T", v)
	}
}

func plainNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid number %q", s)
	}
	return f, nil
}

func decodeList(items []any) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		d, err := decodeValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func decodeTyped(typ string, v any) (any, error) {
	switch typ {
	case typeByte:
		i, err := toInt(v, 8)
		return int8(i), err
	case typeInt16:
		i, err := toInt(v, 16)
		return int16(i), err
	case typeInt32:
		i, err := toInt(v, 32)
		return int32(i), err
	case typeInt64:
		return toInt(v, 64)
	case typeFloat:
		f, err := toFloat(v, 32)
		return float32(f), err
	case typeDouble:
		return toFloat(v, 64)
	case typeDate, typeTimestamp:
		ms, err := toInt(v, 64)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case typeUUID:
		s, _ := v.(string)
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid g:UUID %q", s)
		}
		return id, nil
	case typeList, typeSet:
		items, _ := v.([]any)
		return decodeList(items)
	case typeMap:
		return decodeMap(v)
	case typeT:
		s, _ := v.(string)
		return T(s), nil
	case typeDirection:
		s, _ := v.(string)
		return Direction(s), nil
	case typeCardinality:
		s, _ := v.(string)
		return Cardinality(s), nil
	case typeOrder:
		s, _ := v.(string)
		return Order(s), nil
	case typeVertex:
		return decodeVertex(v)
	case typeEdge:
		return decodeEdge(v)
	case typeVertexProperty:
		return decodeVertexProperty(v)
	case typeProperty:
		return decodeProperty(v)
	case typePath:
		return decodePath(v)
	case typeTraverser:
		return decodeTraverser(v)
	case typeBulkSet:
		return decodeBulkSet(v)
	default:
		return decodeValue(v)
	}
}

func toInt(v any, bits int) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidFormat, "expected integer, got %T", v)
	}
	i, err := strconv.ParseInt(n.String(), 10, bits)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid integer %q", n)
	}
	return i, nil
}

func toFloat(v any, bits int) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), bits)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid float %q", x)
		}
		return f, nil
	case string:
		switch x {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidFormat, "expected float, got %v", v)
}

func decodeMap(v any) (map[any]any, error) {
	items, _ := v.([]any)
	if len(items)%2 != 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "g:Map has an odd number of entries")
	}
	out := make(map[any]any, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		k, err := decodeValue(items[i])
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(items[i+1])
		if err != nil {
			return nil, err
		}
		out[hashableKey(k)] = val
	}
	return out, nil
}

// hashableKey stringifies keys that cannot be used in a Go map, such as
// lists produced by group().by(values('a','b')).
func hashableKey(k any) any {
	switch k.(type) {
	case []any, map[any]any, map[string]any:
		return fmt.Sprint(k)
	}
	return k
}

type object map[string]any

func asObject(v any) (object, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected object, got %T", v)
	}
	return object(m), nil
}

func (o object) value(key string) (any, error) {
	raw, ok := o[key]
	if !ok {
		return nil, nil
	}
	return decodeValue(raw)
}

func (o object) str(key string) string {
	s, _ := o[key].(string)
	return s
}

func decodeVertex(v any) (*Vertex, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	id, err := o.value("id")
	if err != nil {
		return nil, err
	}
	vertex := &Vertex{ID: id, Label: o.str("label")}

	props, ok := o["properties"].(map[string]any)
	if !ok {
		return vertex, nil
	}
	vertex.Properties = make(map[string][]*VertexProperty, len(props))
	for key, raw := range props {
		list, _ := raw.([]any)
		for _, item := range list {
			d, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			if vp, ok := d.(*VertexProperty); ok {
				vertex.Properties[key] = append(vertex.Properties[key], vp)
			}
		}
	}
	return vertex, nil
}

func decodeEdge(v any) (*Edge, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	id, err := o.value("id")
	if err != nil {
		return nil, err
	}
	outID, err := o.value("outV")
	if err != nil {
		return nil, err
	}
	inID, err := o.value("inV")
	if err != nil {
		return nil, err
	}
	edge := &Edge{
		ID:    id,
		Label: o.str("label"),
		OutV:  &Vertex{ID: outID, Label: o.str("outVLabel")},
		InV:   &Vertex{ID: inID, Label: o.str("inVLabel")},
	}

	props, ok := o["properties"].(map[string]any)
	if !ok {
		return edge, nil
	}
	edge.Properties = make(map[string]*Property, len(props))
	for key, raw := range props {
		d, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		if p, ok := d.(*Property); ok {
			edge.Properties[key] = p
		}
	}
	return edge, nil
}

func decodeVertexProperty(v any) (*VertexProperty, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	id, err := o.value("id")
	if err != nil {
		return nil, err
	}
	value, err := o.value("value")
	if err != nil {
		return nil, err
	}
	vp := &VertexProperty{ID: id, Label: o.str("label"), Value: value}
	if vid, err := o.value("vertex"); err == nil && vid != nil {
		vp.Vertex = &Vertex{ID: vid}
	}
	if props, ok := o["properties"].(map[string]any); ok {
		vp.Properties = make(map[string]*Property, len(props))
		for key, raw := range props {
			d, err := decodeValue(raw)
			if err != nil {
				return nil, err
			}
			vp.Properties[key] = &Property{Key: key, Value: d}
		}
	}
	return vp, nil
}

func decodeProperty(v any) (*Property, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	value, err := o.value("value")
	if err != nil {
		return nil, err
	}
	return &Property{Key: o.str("key"), Value: value}, nil
}

func decodePath(v any) (*Path, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	labels, err := o.value("labels")
	if err != nil {
		return nil, err
	}
	objects, err := o.value("objects")
	if err != nil {
		return nil, err
	}

	path := &Path{}
	if ls, ok := labels.([]any); ok {
		for _, l := range ls {
			set, _ := l.([]any)
			names := make([]string, 0, len(set))
			for _, name := range set {
				if s, ok := name.(string); ok {
					names = append(names, s)
				}
			}
			path.Labels = append(path.Labels, names)
		}
	}
	if objs, ok := objects.([]any); ok {
		path.Objects = objs
	}
	return path, nil
}

func decodeTraverser(v any) (*Traverser, error) {
	o, err := asObject(v)
	if err != nil {
		return nil, err
	}
	bulk, err := o.value("bulk")
	if err != nil {
		return nil, err
	}
	value, err := o.value("value")
	if err != nil {
		return nil, err
	}
	t := &Traverser{Bulk: 1, Value: value}
	switch b := bulk.(type) {
	case int64:
		t.Bulk = b
	case int32:
		t.Bulk = int64(b)
	}
	return t, nil
}

func decodeBulkSet(v any) ([]any, error) {
	items, _ := v.([]any)
	if len(items)%2 != 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "g:BulkSet has an odd number of entries")
	}
	var out []any
	for i := 0; i < len(items); i += 2 {
		value, err := decodeValue(items[i])
		if err != nil {
			return nil, err
		}
		bulk, err := decodeValue(items[i+1])
		if err != nil {
			return nil, err
		}
		n, _ := bulk.(int64)
		for range n {
			out = append(out, value)
		}
	}
	return out, nil
}

// expandTraversers replaces each traverser in results by Bulk copies of
// its value.
func expandTraversers(results []any) []any {
	out := make([]any, 0, len(results))
	for _, r := range results {
		t, ok := r.(*Traverser)
		if !ok {
			out = append(out, r)
			continue
		}
		for range max(t.Bulk, 1) {
			out = append(out, t.Value)
		}
	}
	return out
}

// Encode writes v as typed GraphSON v3.
func Encode(v any) ([]byte, error) {
	typed, err := toGraphSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(typed)
}

func typed(typ string, v any) map[string]any {
	return map[string]any{"@type": typ, "@value": v}
}

func toGraphSON(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return x, nil
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return typed(typeInt32, x), nil
		}
		return typed(typeInt64, x), nil
	case int8:
		return typed(typeByte, x), nil
	case int16:
		return typed(typeInt16, x), nil
	case int32, uint8, uint16:
		return typed(typeInt32, x), nil
	case int64, uint32:
		return typed(typeInt64, x), nil
	case uint, uint64:
		return typed(typeInt64, x), nil
	case float32:
		return typed(typeFloat, floatValue(float64(x))), nil
	case float64:
		return typed(typeDouble, floatValue(x)), nil
	case time.Time:
		return typed(typeDate, x.UnixMilli()), nil
	case uuid.UUID:
		return typed(typeUUID, x.String()), nil
	case T:
		return typed(typeT, string(x)), nil
	case Direction:
		return typed(typeDirection, string(x)), nil
	case Cardinality:
		return typed(typeCardinality, string(x)), nil
	case Order:
		return typed(typeOrder, string(x)), nil
	case Column:
		return typed(typeColumn, string(x)), nil
	case P:
		return encodeP(x)
	case *Traversal:
		return encodeBytecode(x.Bytecode())
	case *Bytecode:
		return encodeBytecode(x)
	case *Vertex:
		id, err := toGraphSON(x.ID)
		if err != nil {
			return nil, err
		}
		return typed(typeVertex, map[string]any{"id": id, "label": x.Label}), nil
	case json.RawMessage:
		return x, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, errors.New(errors.ErrCodeUnsupported, "byte slices are not supported in GraphSON")
		}
		items := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			e, err := toGraphSON(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
		return typed(typeList, items), nil
	case reflect.Map:
		items := make([]any, 0, rv.Len()*2)
		iter := rv.MapRange()
		for iter.Next() {
			k, err := toGraphSON(iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			val, err := toGraphSON(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			items = append(items, k, val)
		}
		return typed(typeMap, items), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return toGraphSON(rv.Elem().Interface())
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "cannot encode %T as GraphSON", v)
}

func floatValue(f float64) any {
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

var textPredicates = map[string]bool{
	"startingWith": true, "endingWith": true, "containing": true,
	"notStartingWith": true, "notEndingWith": true, "notContaining": true,
}

func encodeP(p P) (any, error) {
	var value any
	switch {
	case p.Operator == "within" || p.Operator == "without":
		value = p.Values
	case len(p.Values) == 1:
		value = p.Values[0]
	default:
		value = p.Values
	}
	enc, err := toGraphSON(value)
	if err != nil {
		return nil, err
	}
	typ := typeP
	if textPredicates[p.Operator] {
		typ = typeTextP
	}
	return typed(typ, map[string]any{"predicate": p.Operator, "value": enc}), nil
}

func encodeBytecode(bc *Bytecode) (any, error) {
	encode := func(ins []Instruction) ([]any, error) {
		out := make([]any, 0, len(ins))
		for _, in := range ins {
			entry := make([]any, 0, len(in.Args)+1)
			entry = append(entry, in.Operator)
			for _, arg := range in.Args {
				a, err := toGraphSON(arg)
				if err != nil {
					return nil, err
				}
				entry = append(entry, a)
			}
			out = append(out, entry)
		}
		return out, nil
	}

	value := map[string]any{}
	steps, err := encode(bc.Steps)
	if err != nil {
		return nil, err
	}
	if len(steps) > 0 {
		value["step"] = steps
	}
	if len(bc.Sources) > 0 {
		sources, err := encode(bc.Sources)
		if err != nil {
			return nil, err
		}
		value["source"] = sources
	}
	return typed(typeBytecode, value), nil
}
