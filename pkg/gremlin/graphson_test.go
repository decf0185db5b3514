package gremlin

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalars(t *testing.T) {
	id := uuid.MustParse("41d2e28a-20a4-4ab0-b379-d810dede3786")

	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"byte", `{"@type":"gx:Byte","@value":-3}`, int8(-3)},
		{"short", `{"@type":"gx:Int16","@value":1200}`, int16(1200)},
		{"int32", `{"@type":"g:Int32","@value":42}`, int32(42)},
		{"int64", `{"@type":"g:Int64","@value":9007199254740993}`, int64(9007199254740993)},
		{"float", `{"@type":"g:Float","@value":1.5}`, float32(1.5)},
		{"double", `{"@type":"g:Double","@value":2.25}`, 2.25},
		{"infinity", `{"@type":"g:Double","@value":"Infinity"}`, math.Inf(1)},
		{"negative infinity", `{"@type":"g:Double","@value":"-Infinity"}`, math.Inf(-1)},
		{"date", `{"@type":"g:Date","@value":1481750076295}`, time.UnixMilli(1481750076295).UTC()},
		{"timestamp", `{"@type":"g:Timestamp","@value":1481750076295}`, time.UnixMilli(1481750076295).UTC()},
		{"uuid", `{"@type":"g:UUID","@value":"41d2e28a-20a4-4ab0-b379-d810dede3786"}`, id},
		{"T", `{"@type":"g:T","@value":"label"}`, TLabel},
		{"direction", `{"@type":"g:Direction","@value":"OUT"}`, Out},
		{"string", `"marko"`, "marko"},
		{"bool", `true`, true},
		{"null", `null`, nil},
		{"plain int", `7`, int64(7)},
		{"plain float", `7.5`, 7.5},
		{"unknown type", `{"@type":"gx:BigDecimal","@value":"1.10"}`, "1.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNaN(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:Double","@value":"NaN"}`))
	require.NoError(t, err)
	f, ok := got.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestDecodeCollections(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:List","@value":[
		{"@type":"g:Int32","@value":1},
		"two",
		{"@type":"g:Set","@value":["a","b"]}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1), "two", []any{"a", "b"}}, got)

	got, err = Decode([]byte(`{"@type":"g:Map","@value":[
		"name", {"@type":"g:List","@value":["marko"]},
		{"@type":"g:T","@value":"id"}, {"@type":"g:Int64","@value":1},
		{"@type":"g:List","@value":["x","y"]}, {"@type":"g:Int64","@value":2}
	]}`))
	require.NoError(t, err)
	m, ok := got.(map[any]any)
	require.True(t, ok)
	assert.Equal(t, []any{"marko"}, m["name"])
	assert.Equal(t, int64(1), m[TID])
	assert.Equal(t, int64(2), m["[x y]"], "list keys are stringified")

	_, err = Decode([]byte(`{"@type":"g:Map","@value":["odd"]}`))
	assert.Error(t, err)
}

func TestDecodeVertex(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:Vertex","@value":{
		"id":{"@type":"g:Int32","@value":1},
		"label":"person",
		"properties":{
			"name":[{"@type":"g:VertexProperty","@value":{
				"id":{"@type":"g:Int64","@value":0},"value":"marko","label":"name"}}],
			"location":[
				{"@type":"g:VertexProperty","@value":{"id":{"@type":"g:Int64","@value":6},"value":"san diego","label":"location",
					"properties":{"startTime":{"@type":"g:Int32","@value":1997}}}},
				{"@type":"g:VertexProperty","@value":{"id":{"@type":"g:Int64","@value":7},"value":"santa cruz","label":"location"}}
			]
		}
	}}`))
	require.NoError(t, err)

	v, ok := got.(*Vertex)
	require.True(t, ok)
	assert.Equal(t, int32(1), v.ID)
	assert.Equal(t, "person", v.Label)
	require.Len(t, v.Properties["name"], 1)
	assert.Equal(t, "marko", v.Properties["name"][0].Value)
	require.Len(t, v.Properties["location"], 2)
	assert.Equal(t, int32(1997), v.Properties["location"][0].Properties["startTime"].Value)
	assert.Equal(t, "v[1]", v.String())
}

func TestDecodeEdge(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:Edge","@value":{
		"id":"e1","label":"knows",
		"inVLabel":"person","outVLabel":"person",
		"inV":"v2","outV":"v1",
		"properties":{"weight":{"@type":"g:Property","@value":{"key":"weight","value":{"@type":"g:Double","@value":0.5}}}}
	}}`))
	require.NoError(t, err)

	e, ok := got.(*Edge)
	require.True(t, ok)
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "knows", e.Label)
	assert.Equal(t, "v1", e.OutV.ID)
	assert.Equal(t, "v2", e.InV.ID)
	assert.Equal(t, "person", e.InV.Label)
	assert.Equal(t, 0.5, e.Properties["weight"].Value)
	assert.Equal(t, "e[e1][v1-knows->v2]", e.String())
}

func TestDecodePath(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:Path","@value":{
		"labels":{"@type":"g:List","@value":[{"@type":"g:Set","@value":["a"]},{"@type":"g:Set","@value":[]}]},
		"objects":{"@type":"g:List","@value":["v1","v2"]}
	}}`))
	require.NoError(t, err)

	p, ok := got.(*Path)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"a"}, {}}, p.Labels)
	assert.Equal(t, []any{"v1", "v2"}, p.Objects)
}

func TestTraverserExpansion(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:List","@value":[
		{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":3},"value":"a"}},
		{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":1},"value":"b"}},
		"c"
	]}`))
	require.NoError(t, err)

	list, ok := got.([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "a", "a", "b", "c"}, expandTraversers(list))
}

func TestDecodeBulkSet(t *testing.T) {
	got, err := Decode([]byte(`{"@type":"g:BulkSet","@value":["x",{"@type":"g:Int64","@value":2},"y",{"@type":"g:Int64","@value":1}]}`))
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "x", "y"}, got)
}

func TestDecodeInvalid(t *testing.T) {
	for _, raw := range []string{
		`{`,
		`{"@type":"g:Int32","@value":"x"}`,
		`{"@type":"g:UUID","@value":"not-a-uuid"}`,
		`{"@type":"g:Double","@value":"Big"}`,
	} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func encodeToMap(t *testing.T, v any) any {
	t.Helper()
	data, err := Encode(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEncode(t *testing.T) {
	when := time.UnixMilli(1481750076295)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int", 5, `{"@type":"g:Int32","@value":5}`},
		{"big int", 1 << 40, `{"@type":"g:Int64","@value":1099511627776}`},
		{"int64", int64(5), `{"@type":"g:Int64","@value":5}`},
		{"byte", int8(-3), `{"@type":"gx:Byte","@value":-3}`},
		{"short", int16(1200), `{"@type":"gx:Int16","@value":1200}`},
		{"unsigned byte", uint8(200), `{"@type":"g:Int32","@value":200}`},
		{"float32", float32(1.5), `{"@type":"g:Float","@value":1.5}`},
		{"float64", 2.5, `{"@type":"g:Double","@value":2.5}`},
		{"nan", math.NaN(), `{"@type":"g:Double","@value":"NaN"}`},
		{"date", when, `{"@type":"g:Date","@value":1481750076295}`},
		{"uuid", uuid.MustParse("41d2e28a-20a4-4ab0-b379-d810dede3786"), `{"@type":"g:UUID","@value":"41d2e28a-20a4-4ab0-b379-d810dede3786"}`},
		{"T", TID, `{"@type":"g:T","@value":"id"}`},
		{"cardinality", Set, `{"@type":"g:Cardinality","@value":"set"}`},
		{"list", []string{"a", "b"}, `{"@type":"g:List","@value":["a","b"]}`},
		{"map", map[string]int{"a": 1}, `{"@type":"g:Map","@value":["a",{"@type":"g:Int32","@value":1}]}`},
		{"predicate", Gt(3), `{"@type":"g:P","@value":{"predicate":"gt","value":{"@type":"g:Int32","@value":3}}}`},
		{"within", Within("a", "b"), `{"@type":"g:P","@value":{"predicate":"within","value":{"@type":"g:List","@value":["a","b"]}}}`},
		{"text predicate", StartingWith("ma"), `{"@type":"g:TextP","@value":{"predicate":"startingWith","value":"ma"}}`},
		{"string", "x", `"x"`},
		{"nil", nil, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want any
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))
			assert.Equal(t, want, encodeToMap(t, tt.in))
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := Encode([]byte("raw"))
	assert.Error(t, err)
	_, err = Encode(make(chan int))
	assert.Error(t, err)
}

func TestEncodeRoundTripTyped(t *testing.T) {
	in := []any{int8(7), int16(-8), int32(1), int64(2), 3.5, "x", TLabel}
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []any{int8(7), int16(-8), int32(1), int64(2), 3.5, "x", TLabel}, out)
}

func TestPlain(t *testing.T) {
	id := uuid.MustParse("41d2e28a-20a4-4ab0-b379-d810dede3786")
	in := []any{
		map[any]any{TLabel: "person", "age": int32(29), int64(1): math.Inf(1)},
		&Vertex{ID: "v1", Label: "person", Properties: map[string][]*VertexProperty{
			"name": {{ID: "p1", Label: "name", Value: "marko"}},
		}},
		&Edge{ID: "e1", Label: "knows", OutV: &Vertex{ID: "v1"}, InV: &Vertex{ID: "v2"}},
		id,
		time.UnixMilli(0).UTC(),
	}

	got := Plain(in)
	data, err := json.Marshal(got)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"label":"person","age":29,"1":"Infinity"},
		{"type":"vertex","id":"v1","label":"person","properties":{"name":["marko"]}},
		{"type":"edge","id":"e1","label":"knows","outV":"v1","inV":"v2"},
		"41d2e28a-20a4-4ab0-b379-d810dede3786",
		"1970-01-01T00:00:00Z"
	]`, string(data))
}
