package gremlin

import (
	"fmt"
)

// Vertex is a graph vertex. Properties are only populated when the server
// materialises them (for example with valueMap or elementMap they are
// returned separately instead).
type Vertex struct {
	ID         any
	Label      string
	Properties map[string][]*VertexProperty
}

func (v *Vertex) String() string { return fmt.Sprintf("v[%v]", v.ID) }

// Edge is a graph edge between two vertices.
type Edge struct {
	ID         any
	Label      string
	OutV       *Vertex
	InV        *Vertex
	Properties map[string]*Property
}

func (e *Edge) String() string {
	var out, in any
	if e.OutV != nil {
		out = e.OutV.ID
	}
	if e.InV != nil {
		in = e.InV.ID
	}
	return fmt.Sprintf("e[%v][%v-%s->%v]", e.ID, out, e.Label, in)
}

// VertexProperty is a property of a vertex; it may carry meta-properties.
type VertexProperty struct {
	ID         any
	Label      string
	Value      any
	Vertex     *Vertex
	Properties map[string]*Property
}

func (p *VertexProperty) String() string { return fmt.Sprintf("vp[%s->%v]", p.Label, p.Value) }

// Property is a key/value pair on an edge or meta-property.
type Property struct {
	Key   string
	Value any
}

func (p *Property) String() string { return fmt.Sprintf("p[%s->%v]", p.Key, p.Value) }

// Path is the history of a traverser.
type Path struct {
	Labels  [][]string
	Objects []any
}

// Traverser is a value with a bulk count, as produced by traversals that
// do not expand duplicates.
type Traverser struct {
	Bulk  int64
	Value any
}

// T is a token for element structure, such as T.id.
type T string

const (
	TID    T = "id"
	TLabel T = "label"
	TKey   T = "key"
	TValue T = "value"
)

// Direction of an edge relative to a vertex.
type Direction string

const (
	Out  Direction = "OUT"
	In   Direction = "IN"
	Both Direction = "BOTH"
)

// Cardinality of a vertex property.
type Cardinality string

const (
	Single Cardinality = "single"
	List   Cardinality = "list"
	Set    Cardinality = "set"
)

// Order is a sort direction for the order step.
type Order string

const (
	Asc     Order = "asc"
	Desc    Order = "desc"
	Shuffle Order = "shuffle"
)

// Column selects keys or values of a map entry.
type Column string

const (
	Keys   Column = "keys"
	Values Column = "values"
)

// P is a predicate used by has, is and where.
type P struct {
	Operator string
	Values   []any
}

func newP(op string, values ...any) P { return P{Operator: op, Values: values} }

// Eq tests for equality.
func Eq(v any) P { return newP("eq", v) }

// Neq tests for inequality.
func Neq(v any) P { return newP("neq", v) }

// Lt tests v < x.
func Lt(v any) P { return newP("lt", v) }

// Lte tests v <= x.
func Lte(v any) P { return newP("lte", v) }

// Gt tests v > x.
func Gt(v any) P { return newP("gt", v) }

// Gte tests v >= x.
func Gte(v any) P { return newP("gte", v) }

// Within tests membership in values.
func Within(values ...any) P { return newP("within", values...) }

// Without tests non-membership in values.
func Without(values ...any) P { return newP("without", values...) }

// Between tests low <= x < high.
func Between(low, high any) P { return newP("between", low, high) }

// StartingWith tests a string prefix. Neptune supports it natively.
func StartingWith(prefix string) P { return newP("startingWith", prefix) }
