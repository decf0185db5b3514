package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// Querier runs traversals. *gremlin.Client satisfies it.
type Querier interface {
	SubmitTraversal(ctx context.Context, t *gremlin.Traversal) ([]any, error)
}

// EdgeTriple is an edge label together with the labels of the vertices it
// connects, and the number of edges seen.
type EdgeTriple struct {
	From  string
	Label string
	To    string
	Count int64
}

// Property is one property of a label as shown in the diagram.
type Property struct {
	Name string
	Type metadata.DataType
	// Multi marks multi-valued properties.
	Multi bool
}

func (p Property) String() string {
	s := p.Name + p.Type.TypeDescription()
	if p.Multi {
		s += "[]"
	}
	return s
}

// Vertex is a vertex label.
type Vertex struct {
	Label      string
	Properties []Property
}

// Edge connects two vertex labels.
type Edge struct {
	EdgeTriple
	Properties []Property
}

// Graph is the label graph.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
}

// EdgeTriples counts edges grouped by out-vertex label, edge label and
// in-vertex label. This touches every edge.
func EdgeTriples(ctx context.Context, q Querier) ([]EdgeTriple, error) {
	t := gremlin.G().E().
		Project("out", "label", "in").
		By(gremlin.Anon().OutV().Label()).
		By(gremlin.TLabel).
		By(gremlin.Anon().InV().Label()).
		GroupCount().
		Unfold().
		Project("triple", "count").
		By(gremlin.Anon().Select(gremlin.Keys)).
		By(gremlin.Anon().Select(gremlin.Values))

	results, err := q.SubmitTraversal(ctx, t)
	if err != nil {
		return nil, err
	}

	triples := make([]EdgeTriple, 0, len(results))
	for _, r := range results {
		row, ok := r.(map[any]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unexpected edge triple %T", r)
		}
		triple, ok := row["triple"].(map[any]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unexpected edge triple key %T", row["triple"])
		}
		et := EdgeTriple{
			From:  fmt.Sprint(triple["out"]),
			Label: fmt.Sprint(triple["label"]),
			To:    fmt.Sprint(triple["in"]),
		}
		switch n := row["count"].(type) {
		case int64:
			et.Count = n
		case int32:
			et.Count = int64(n)
		}
		triples = append(triples, et)
	}
	sortTriples(triples)
	return triples, nil
}

func sortTriples(ts []EdgeTriple) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.To < b.To
	})
}

// FromMetadata builds the label graph. Vertex labels come from the nodes
// metadata and from the triples; edge properties come from the edges
// metadata. A nil collection yields labels without properties.
func FromMetadata(coll *metadata.Collection, triples []EdgeTriple) *Graph {
	if coll == nil {
		coll = metadata.NewCollection()
	}
	nodes := coll.PropertyMetadataFor("nodes")
	edges := coll.PropertyMetadataFor("edges")

	g := &Graph{}
	seen := make(map[string]bool)
	addVertex := func(label string) {
		if seen[label] {
			return
		}
		seen[label] = true
		v := Vertex{Label: label}
		if lm, ok := nodes.Label(label); ok {
			v.Properties = properties(lm)
		}
		g.Vertices = append(g.Vertices, v)
	}

	for _, l := range nodes.Labels() {
		addVertex(l)
	}
	sorted := append([]EdgeTriple(nil), triples...)
	sortTriples(sorted)
	for _, t := range sorted {
		addVertex(t.From)
		addVertex(t.To)
		e := Edge{EdgeTriple: t}
		if lm, ok := edges.Label(t.Label); ok {
			e.Properties = properties(lm)
		}
		g.Edges = append(g.Edges, e)
	}
	return g
}

func properties(lm *metadata.LabelMetadata) []Property {
	keys := lm.Keys()
	out := make([]Property, 0, len(keys))
	for _, k := range keys {
		p, _ := lm.Property(k)
		out = append(out, Property{Name: k, Type: p.DataType, Multi: p.Multi})
	}
	return out
}
