package export

import (
	"context"
	"fmt"
	"sort"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
)

// Querier runs traversals. *gremlin.Client satisfies it.
type Querier interface {
	SubmitTraversal(ctx context.Context, t *gremlin.Traversal) ([]any, error)
}

var _ Querier = (*gremlin.Client)(nil)

// MetadataHandler receives the label and properties of one element during
// a metadata scan. Multi-valued node properties arrive as []any.
type MetadataHandler func(label string, properties map[string]any) error

// Handler receives one exported element.
type Handler[T any] func(element T) error

// MetadataClient is the part of a GraphClient that does not depend on the
// element type.
type MetadataClient interface {
	// Description is the element name, "nodes" or "edges".
	Description() string
	QueryForMetadata(ctx context.Context, handler MetadataHandler, r Range, filter LabelsFilter) error
	Count(ctx context.Context, filter LabelsFilter) (int64, error)
	Labels(ctx context.Context) ([]string, error)
}

// GraphClient reads elements of type T.
type GraphClient[T any] interface {
	MetadataClient
	QueryForValues(ctx context.Context, handler Handler[T], r Range, filter LabelsFilter) error
	LabelFrom(element T) string
}

// Node is an exported vertex.
type Node struct {
	ID         any
	Label      string
	Properties map[string]any
}

// Edge is an exported edge.
type Edge struct {
	ID         any
	Label      string
	From       any
	To         any
	Properties map[string]any
}

// NodesClient queries vertices.
type NodesClient struct{ q Querier }

// NewNodesClient returns a client for vertices.
func NewNodesClient(q Querier) *NodesClient { return &NodesClient{q: q} }

func (c *NodesClient) Description() string { return "nodes" }

func (c *NodesClient) QueryForMetadata(ctx context.Context, handler MetadataHandler, r Range, filter LabelsFilter) error {
	t := r.apply(filter.apply(gremlin.G().V())).ValueMapWithTokens()
	return queryForMetadata(ctx, c.q, t, handler)
}

func (c *NodesClient) QueryForValues(ctx context.Context, handler Handler[Node], r Range, filter LabelsFilter) error {
	t := r.apply(filter.apply(gremlin.G().V())).
		Project("id", "label", "properties").
		By(gremlin.TID).
		By(gremlin.TLabel).
		By(gremlin.Anon().ValueMap())
	results, err := c.q.SubmitTraversal(ctx, t)
	if err != nil {
		return err
	}
	for _, res := range results {
		m, err := asMap(res)
		if err != nil {
			return err
		}
		n := Node{ID: m["id"], Label: fmt.Sprint(m["label"]), Properties: properties(m["properties"])}
		if err := handler(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *NodesClient) Count(ctx context.Context, filter LabelsFilter) (int64, error) {
	return count(ctx, c.q, filter.apply(gremlin.G().V()))
}

func (c *NodesClient) Labels(ctx context.Context) ([]string, error) {
	return labels(ctx, c.q, gremlin.G().V())
}

func (c *NodesClient) LabelFrom(n Node) string { return n.Label }

// EdgesClient queries edges.
type EdgesClient struct{ q Querier }

// NewEdgesClient returns a client for edges.
func NewEdgesClient(q Querier) *EdgesClient { return &EdgesClient{q: q} }

func (c *EdgesClient) Description() string { return "edges" }

func (c *EdgesClient) QueryForMetadata(ctx context.Context, handler MetadataHandler, r Range, filter LabelsFilter) error {
	t := r.apply(filter.apply(gremlin.G().E())).ValueMapWithTokens()
	return queryForMetadata(ctx, c.q, t, handler)
}

func (c *EdgesClient) QueryForValues(ctx context.Context, handler Handler[Edge], r Range, filter LabelsFilter) error {
	t := r.apply(filter.apply(gremlin.G().E())).
		Project("id", "label", "from", "to", "properties").
		By(gremlin.TID).
		By(gremlin.TLabel).
		By(gremlin.Anon().OutV().ID()).
		By(gremlin.Anon().InV().ID()).
		By(gremlin.Anon().ValueMap())
	results, err := c.q.SubmitTraversal(ctx, t)
	if err != nil {
		return err
	}
	for _, res := range results {
		m, err := asMap(res)
		if err != nil {
			return err
		}
		e := Edge{
			ID:         m["id"],
			Label:      fmt.Sprint(m["label"]),
			From:       m["from"],
			To:         m["to"],
			Properties: properties(m["properties"]),
		}
		if err := handler(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *EdgesClient) Count(ctx context.Context, filter LabelsFilter) (int64, error) {
	return count(ctx, c.q, filter.apply(gremlin.G().E()))
}

func (c *EdgesClient) Labels(ctx context.Context) ([]string, error) {
	return labels(ctx, c.q, gremlin.G().E())
}

func (c *EdgesClient) LabelFrom(e Edge) string { return e.Label }

var (
	_ GraphClient[Node] = (*NodesClient)(nil)
	_ GraphClient[Edge] = (*EdgesClient)(nil)
)

// queryForMetadata runs a valueMap(true) traversal and splits each result
// into its label and properties.
func queryForMetadata(ctx context.Context, q Querier, t *gremlin.Traversal, handler MetadataHandler) error {
	results, err := q.SubmitTraversal(ctx, t)
	if err != nil {
		return err
	}
	for _, res := range results {
		m, ok := res.(map[any]any)
		if !ok {
			return errors.New(errors.ErrCodeInvalidFormat, "expected a value map, got %T", res)
		}
		var label string
		props := make(map[string]any, len(m))
		for k, v := range m {
			switch key := k.(type) {
			case gremlin.T:
				if key == gremlin.TLabel {
					label = fmt.Sprint(v)
				}
			case string:
				props[key] = v
			}
		}
		if err := handler(label, props); err != nil {
			return err
		}
	}
	return nil
}

func count(ctx context.Context, q Querier, t *gremlin.Traversal) (int64, error) {
	results, err := q.SubmitTraversal(ctx, t.Count())
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	switch n := results[0].(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidFormat, "expected a count, got %T", results[0])
}

func labels(ctx context.Context, q Querier, t *gremlin.Traversal) ([]string, error) {
	results, err := q.SubmitTraversal(ctx, t.Label().Dedup())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, fmt.Sprint(r))
	}
	sort.Strings(out)
	return out, nil
}

func asMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "expected a map, got %T", v)
}

func properties(v any) map[string]any {
	m, err := asMap(v)
	if err != nil {
		return map[string]any{}
	}
	return m
}
