package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

type fakeQuerier struct {
	results []any
	err     error
	got     string
}

func (f *fakeQuerier) SubmitTraversal(_ context.Context, t *gremlin.Traversal) ([]any, error) {
	f.got = t.String()
	return f.results, f.err
}

func triple(out, label, in string, n int64) map[any]any {
	return map[any]any{
		"triple": map[any]any{"out": out, "label": label, "in": in},
		"count":  n,
	}
}

func testCollection() *metadata.Collection {
	coll := metadata.NewCollection()
	nodes := coll.PropertyMetadataFor("nodes")
	nodes.Update("person", map[string]any{"name": []any{"marko"}, "tags": []any{"a", "b"}}, true)
	nodes.Update("software", map[string]any{"lang": []any{"java"}}, true)
	coll.PropertyMetadataFor("edges").Update("knows", map[string]any{"weight": 0.5}, true)
	return coll
}

func TestEdgeTriples(t *testing.T) {
	q := &fakeQuerier{results: []any{
		triple("person", "knows", "person", 2),
		triple("person", "created", "software", int64(4)),
	}}

	got, err := EdgeTriples(context.Background(), q)
	if err != nil {
		t.Fatalf("EdgeTriples() error: %v", err)
	}
	want := []EdgeTriple{
		{From: "person", Label: "created", To: "software", Count: 4},
		{From: "person", Label: "knows", To: "person", Count: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("EdgeTriples() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if !strings.HasPrefix(q.got, "g.E().project('out','label','in')") || !strings.Contains(q.got, "groupCount().unfold()") {
		t.Errorf("unexpected traversal: %s", q.got)
	}
}

func TestEdgeTriplesErrors(t *testing.T) {
	_, err := EdgeTriples(context.Background(), &fakeQuerier{err: errors.New(errors.ErrCodeTimeout, "slow")})
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}

	_, err = EdgeTriples(context.Background(), &fakeQuerier{results: []any{"nope"}})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("expected INVALID_FORMAT, got %v", err)
	}
}

func TestFromMetadata(t *testing.T) {
	g := FromMetadata(testCollection(), []EdgeTriple{
		{From: "person", Label: "knows", To: "person", Count: 2},
		{From: "person", Label: "uses", To: "tool", Count: 1},
	})

	var labels []string
	for _, v := range g.Vertices {
		labels = append(labels, v.Label)
	}
	if strings.Join(labels, ",") != "person,software,tool" {
		t.Errorf("vertex labels = %v", labels)
	}
	if got := g.Vertices[0].Properties; len(got) != 2 || got[1].String() != "tags:string[]" {
		t.Errorf("person properties = %v", got)
	}
	if len(g.Vertices[2].Properties) != 0 {
		t.Error("labels missing from metadata have no properties")
	}

	if len(g.Edges) != 2 {
		t.Fatalf("edges = %v", g.Edges)
	}
	if p := g.Edges[0].Properties; len(p) != 1 || p[0].String() != "weight:double" {
		t.Errorf("knows properties = %v", p)
	}
}

func TestFromMetadataNil(t *testing.T) {
	g := FromMetadata(nil, []EdgeTriple{{From: "a", Label: "e", To: "b"}})
	if len(g.Vertices) != 2 || len(g.Edges) != 1 {
		t.Errorf("FromMetadata(nil) = %+v", g)
	}
}

func TestToDOT(t *testing.T) {
	g := FromMetadata(testCollection(), []EdgeTriple{{From: "person", Label: "knows", To: "person", Count: 2}})

	plain := ToDOT(g, Options{})
	for _, want := range []string{
		"digraph schema {",
		`"person" [label="person"];`,
		`"person" -> "person" [label="knows"];`,
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, plain)
		}
	}

	detailed := ToDOT(g, Options{Detailed: true})
	for _, want := range []string{
		`"person" [label="person\nname:string\ntags:string[]"];`,
		`"software" [label="software\nlang:string"];`,
		`[label="knows (2)\nweight:double"];`,
	} {
		if !strings.Contains(detailed, want) {
			t.Errorf("ToDOT(detailed) missing %q:\n%s", want, detailed)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte("<svg><g/></svg>")
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox should be unchanged")
	}
}

func TestRenderFormats(t *testing.T) {
	dot := ToDOT(&Graph{}, Options{})
	out, err := Render(context.Background(), dot, "dot")
	if err != nil || string(out) != dot {
		t.Errorf("Render(dot) = %q, %v", out, err)
	}
	if _, err := Render(context.Background(), dot, "gif"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
