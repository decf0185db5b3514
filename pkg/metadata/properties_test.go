package metadata

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

func TestPropertiesMetadataUpdate(t *testing.T) {
	m := NewPropertiesMetadata()

	m.Update("person", map[string]any{
		"name": []any{"marko"},
		"age":  []any{int32(29)},
	}, true)
	m.Update("person", map[string]any{
		"age":      []any{int64(30)},
		"nickname": []any{"m", "mk"},
	}, true)
	m.Update("software", map[string]any{"lang": []any{"java"}}, true)

	if got := m.Labels(); !reflect.DeepEqual(got, []string{"person", "software"}) {
		t.Fatalf("Labels() = %v", got)
	}

	person, ok := m.Label("person")
	if !ok {
		t.Fatal("person label missing")
	}
	if got := person.Keys(); !reflect.DeepEqual(got, []string{"age", "name", "nickname"}) {
		t.Errorf("Keys() = %v", got)
	}

	age, _ := person.Property("age")
	if age.DataType != Long || age.Multi {
		t.Errorf("age = %+v, want Long single", age)
	}
	nick, _ := person.Property("nickname")
	if nick.DataType != String || !nick.Multi {
		t.Errorf("nickname = %+v, want String multi", nick)
	}
}

func TestPropertiesMetadataUpdateWithoutStructuralChanges(t *testing.T) {
	m := NewPropertiesMetadata()
	m.Update("person", map[string]any{"age": int32(1)}, true)

	m.Update("person", map[string]any{"age": "unknown", "extra": 1}, false)
	m.Update("robot", map[string]any{"model": "x"}, false)

	if m.HasLabel("robot") {
		t.Error("robot label added without structural changes")
	}
	person, _ := m.Label("person")
	if _, ok := person.Property("extra"); ok {
		t.Error("extra property added without structural changes")
	}
	age, _ := person.Property("age")
	if age.DataType != String {
		t.Errorf("age type = %s, want String after broadening", age.DataType)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	c := NewCollection()
	nodes := c.PropertyMetadataFor("nodes")
	nodes.Update("person", map[string]any{"name": []any{"a", "b"}, "age": []any{int32(3)}}, true)
	edges := c.PropertyMetadataFor("edges")
	edges.Update("knows", map[string]any{"weight": 0.5}, true)
	edges.AddLabel("created")

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"isMultiValue": true`) {
		t.Errorf("output missing multi-value flag:\n%s", buf.String())
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if types := got.Types(); !reflect.DeepEqual(types, []string{"nodes", "edges"}) {
		t.Errorf("Types() = %v", types)
	}

	person, ok := got.PropertyMetadataFor("nodes").Label("person")
	if !ok {
		t.Fatal("person missing after round trip")
	}
	name, _ := person.Property("name")
	if name != (PropertyMetadata{DataType: String, Multi: true}) {
		t.Errorf("name = %+v", name)
	}
	if labels := got.PropertyMetadataFor("edges").Labels(); !reflect.DeepEqual(labels, []string{"knows", "created"}) {
		t.Errorf("edge labels = %v", labels)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)

	c := NewCollection()
	c.PropertyMetadataFor("nodes").Update("person", map[string]any{"born": []any{int64(1)}}, true)
	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	person, _ := got.PropertyMetadataFor("nodes").Label("person")
	if p, _ := person.Property("born"); p.DataType != Long {
		t.Errorf("born = %+v", p)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := Read(strings.NewReader(`[1,2]`)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Read(array) error = %v, want INVALID_FORMAT", err)
	}
}
