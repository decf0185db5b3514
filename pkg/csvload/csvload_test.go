package csvload

import (
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

func TestParseColumn(t *testing.T) {
	tests := []struct {
		field string
		want  Column
	}{
		{"~id", Column{Name: "~id", System: true, Type: metadata.String}},
		{"name", Column{Name: "name", Type: metadata.String, Cardinality: Single}},
		{"age:Int", Column{Name: "age", Type: metadata.Integer, Cardinality: Single}},
		{"age:int", Column{Name: "age", Type: metadata.Integer, Cardinality: Single}},
		{"flag:Bool", Column{Name: "flag", Type: metadata.Boolean, Cardinality: Single}},
		{"born:Date", Column{Name: "born", Type: metadata.Date, Cardinality: Single}},
		{"tags:String[]", Column{Name: "tags", Type: metadata.String, Multi: true, Cardinality: Set}},
		{"score:Double(set)", Column{Name: "score", Type: metadata.Double, Cardinality: Set}},
		{"score:Double(single)", Column{Name: "score", Type: metadata.Double, Cardinality: Single}},
		{"ns:key:Long", Column{Name: "ns:key", Type: metadata.Long, Cardinality: Single}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := ParseColumn(tt.field)
			if err != nil {
				t.Fatalf("ParseColumn() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseColumn() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseColumnErrors(t *testing.T) {
	for _, field := range []string{
		"~weird",
		"age:Integr",
		":Int",
		"tags:String[](single)",
		"x:Int(many)",
	} {
		if _, err := ParseColumn(field); !errors.Is(err, errors.ErrCodeInvalidCSV) {
			t.Errorf("ParseColumn(%q) error = %v, want INVALID_CSV", field, err)
		}
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		kind    Kind
		wantErr bool
	}{
		{"vertices", []string{"~id", "~label", "name"}, Vertices, false},
		{"vertices without label", []string{"~id", "name"}, Vertices, false},
		{"edges", []string{"~id", "~from", "~to", "~label", "weight:Double"}, Edges, false},
		{"missing id", []string{"~label", "name"}, Vertices, true},
		{"from without to", []string{"~id", "~from", "~label"}, Vertices, true},
		{"edge without label", []string{"~id", "~from", "~to"}, Edges, true},
		{"multi-valued edge property", []string{"~id", "~from", "~to", "~label", "tags:String[]"}, Edges, true},
		{"duplicate", []string{"~id", "name", "name:String"}, Vertices, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader(tt.fields)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && h.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", h.Kind(), tt.kind)
			}
		})
	}
}

func TestColumnString(t *testing.T) {
	for _, field := range []string{"~id", "name:string", "age:int", "flag:bool", "tags:string[]"} {
		col, err := ParseColumn(field)
		if err != nil {
			t.Fatalf("ParseColumn(%q) error: %v", field, err)
		}
		if got := col.String(); got != field {
			t.Errorf("String() = %q, want %q", got, field)
		}
	}
}

const verticesCSV = "\ufeff~id,~label,name:String,age:Int,tags:String[],born:Date,active:Bool\n" +
	"v1,person,marko,29,a;b\\;c;,2019-03-04,true\n" +
	"v2,person;employee,\"vadas \"\"v\"\"\",,,,\n" +
	"v3,,,,,2019-03-04T05:06:07Z,FALSE\n"

func TestReaderVertices(t *testing.T) {
	r, err := NewReader(strings.NewReader(verticesCSV))
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	if r.Kind() != Vertices {
		t.Errorf("Kind() = %s, want vertices", r.Kind())
	}

	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	v1 := records[0]
	if v1.ID != "v1" || v1.Label() != "person" || v1.Line != 2 {
		t.Errorf("v1 = %+v", v1)
	}
	want := []PropertyValue{
		{Key: "name", Values: []any{"marko"}, Cardinality: Single},
		{Key: "age", Values: []any{int32(29)}, Cardinality: Single},
		{Key: "tags", Values: []any{"a", "b;c"}, Cardinality: Set},
		{Key: "born", Values: []any{time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)}, Cardinality: Single},
		{Key: "active", Values: []any{true}, Cardinality: Single},
	}
	if !reflect.DeepEqual(v1.Properties, want) {
		t.Errorf("v1 properties = %+v\nwant %+v", v1.Properties, want)
	}

	v2 := records[1]
	if !reflect.DeepEqual(v2.Labels, []string{"person", "employee"}) {
		t.Errorf("v2 labels = %v", v2.Labels)
	}
	if len(v2.Properties) != 1 || v2.Properties[0].Values[0] != `vadas "v"` {
		t.Errorf("v2 properties = %+v", v2.Properties)
	}

	v3 := records[2]
	if v3.Label() != DefaultVertexLabel {
		t.Errorf("v3 label = %q, want default", v3.Label())
	}
	if len(v3.Properties) != 2 || v3.Properties[1].Values[0] != false {
		t.Errorf("v3 properties = %+v", v3.Properties)
	}
}

func TestReaderEdges(t *testing.T) {
	input := "~id,~from,~to,~label,weight:Double\n" +
		"e1,v1,v2,knows,0.5\n"
	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	if r.Kind() != Edges {
		t.Fatalf("Kind() = %s, want edges", r.Kind())
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if rec.From != "v1" || rec.To != "v2" || rec.Label() != "knows" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Properties[0].Values[0] != 0.5 {
		t.Errorf("weight = %v", rec.Properties[0].Values[0])
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty file"},
		{"bad int", "~id,age:Int\nv1,old\n", `line 2, column "age"`},
		{"bad date", "~id,born:Date\nv1,yesterday\n", "invalid date"},
		{"empty id", "~id,name\n,x\n", "empty ~id"},
		{"edge without endpoints", "~id,~from,~to,~label\ne1,,v2,knows\n", "edge needs"},
		{"field count", "~id,name\nv1,a,b\n", "line 2"},
		{"byte overflow", "~id,b:Byte\nv1,300\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(tt.input))
			if err == nil {
				_, err = r.ReadAll()
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidCSV) {
				t.Errorf("error code = %s, want INVALID_CSV", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestSplitMulti(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a", []string{"a"}},
		{"a;b", []string{"a", "b"}},
		{`a\;b;c`, []string{"a;b", "c"}},
		{"a;", []string{"a", ""}},
		{`a\b`, []string{`a\b`}},
	}
	for _, tt := range tests {
		if got := SplitMulti(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitMulti(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrefixColumns(t *testing.T) {
	prefixes, err := ParsePrefixes([]string{"~id=person", "~from=person", "~to=software"})
	if err != nil {
		t.Fatalf("ParsePrefixes() error: %v", err)
	}

	rec := &Record{ID: "1", From: "2", To: "3"}
	PrefixColumns(rec, prefixes)
	if rec.ID != "person-1" || rec.From != "person-2" || rec.To != "software-3" {
		t.Errorf("prefixed record = %+v", rec)
	}

	vertex := &Record{ID: "1"}
	PrefixColumns(vertex, Prefixes{ColumnID: "p"})
	if vertex.ID != "p-1" || vertex.From != "" {
		t.Errorf("prefixed vertex = %+v", vertex)
	}

	for _, bad := range []string{"~id", "~label=x", "name=x", "~id="} {
		if _, err := ParsePrefixes([]string{bad}); err == nil {
			t.Errorf("ParsePrefixes(%q) expected error", bad)
		}
	}
}
