// Package csvload reads files in the Neptune bulk load CSV format so they
// can be written through Gremlin instead of the bulk loader.
//
// A file is a vertex file or an edge file depending on its system columns:
// vertex files carry ~id and optionally ~label, edge files add ~from and
// ~to. Every other column is a property declared as
//
//	name[:Type][[]][(single|set)]
//
// where Type is one of Bool, Byte, Short, Int, Long, Float, Double, String
// or Date (case-insensitive, String by default), "[]" marks a multi-valued
// column whose values are separated by ";" (write "\;" for a literal
// semicolon) and the optional suffix sets the vertex property cardinality.
package csvload

import (
	"strings"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// System column names.
const (
	ColumnID    = "~id"
	ColumnLabel = "~label"
	ColumnFrom  = "~from"
	ColumnTo    = "~to"
)

// Cardinality of a vertex property.
type Cardinality string

const (
	Single Cardinality = "single"
	Set    Cardinality = "set"
)

// Kind says whether a file holds vertices or edges.
type Kind int

const (
	Vertices Kind = iota
	Edges
)

func (k Kind) String() string {
	if k == Edges {
		return "edges"
	}
	return "vertices"
}

// Column is one parsed header field.
type Column struct {
	// Name is the property name, or the system column name (~id, ...).
	Name        string
	System      bool
	Type        metadata.DataType
	Multi       bool
	Cardinality Cardinality
}

// Header is the parsed header row of a bulk load file.
type Header struct {
	Columns []Column
	index   map[string]int
}

// Kind returns Edges when both ~from and ~to are present.
func (h *Header) Kind() Kind {
	if h.Has(ColumnFrom) && h.Has(ColumnTo) {
		return Edges
	}
	return Vertices
}

// Has reports whether the header declares a column.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Index returns the position of a column, or -1.
func (h *Header) Index(name string) int {
	if i, ok := h.index[name]; ok {
		return i
	}
	return -1
}

// ParseHeader parses and validates a header row.
func ParseHeader(fields []string) (*Header, error) {
	h := &Header{index: make(map[string]int, len(fields))}
	for i, field := range fields {
		col, err := ParseColumn(field)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCSV, err, "header column %d", i+1)
		}
		if _, dup := h.index[col.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidCSV, "duplicate column %q", col.Name)
		}
		h.index[col.Name] = i
		h.Columns = append(h.Columns, col)
	}

	if !h.Has(ColumnID) {
		return nil, errors.New(errors.ErrCodeInvalidCSV, "missing %s column", ColumnID)
	}
	if h.Has(ColumnFrom) != h.Has(ColumnTo) {
		return nil, errors.New(errors.ErrCodeInvalidCSV, "edge files need both %s and %s", ColumnFrom, ColumnTo)
	}
	if h.Kind() == Edges {
		if !h.Has(ColumnLabel) {
			return nil, errors.New(errors.ErrCodeInvalidCSV, "edge files need a %s column", ColumnLabel)
		}
		for _, c := range h.Columns {
			if c.Multi {
				return nil, errors.New(errors.ErrCodeInvalidCSV, "edge property %q cannot be multi-valued", c.Name)
			}
		}
	}
	return h, nil
}

// ParseColumn parses a single header field.
func ParseColumn(field string) (Column, error) {
	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, "~") {
		switch field {
		case ColumnID, ColumnLabel, ColumnFrom, ColumnTo:
			return Column{Name: field, System: true, Type: metadata.String}, nil
		}
		return Column{}, errors.New(errors.ErrCodeInvalidCSV, "unknown system column %q", field)
	}

	col := Column{Type: metadata.String}

	if strings.HasSuffix(field, ")") {
		open := strings.LastIndex(field, "(")
		if open < 0 {
			return Column{}, errors.New(errors.ErrCodeInvalidCSV, "malformed column %q", field)
		}
		switch card := Cardinality(strings.ToLower(field[open+1 : len(field)-1])); card {
		case Single, Set:
			col.Cardinality = card
		default:
			return Column{}, errors.New(errors.ErrCodeInvalidCSV, "unknown cardinality %q in column %q", card, field)
		}
		field = field[:open]
	}

	if rest, ok := strings.CutSuffix(field, "[]"); ok {
		col.Multi = true
		field = rest
	}

	name := field
	if i := strings.LastIndex(field, ":"); i >= 0 {
		name = field[:i]
		typ, err := metadata.ParseDataType(field[i+1:])
		if err != nil {
			return Column{}, errors.Wrap(errors.ErrCodeInvalidCSV, err, "column %q", field)
		}
		if typ != metadata.None {
			col.Type = typ
		}
	}
	if name == "" {
		return Column{}, errors.New(errors.ErrCodeInvalidCSV, "column %q has no name", field)
	}
	col.Name = name

	if col.Multi && col.Cardinality == Single {
		return Column{}, errors.New(errors.ErrCodeInvalidCSV, "column %q is multi-valued but has single cardinality", name)
	}
	if col.Cardinality == "" {
		col.Cardinality = Single
		if col.Multi {
			col.Cardinality = Set
		}
	}
	return col, nil
}

// String renders the column back in header syntax.
func (c Column) String() string {
	if c.System {
		return c.Name
	}
	s := c.Name + c.Type.TypeDescription()
	if c.Multi {
		s += "[]"
	}
	return s
}

func errInvalidPrefix(pair string) error {
	return errors.New(errors.ErrCodeInvalidInput, "invalid prefix %q: want ~id=, ~from= or ~to=<prefix>", pair)
}
