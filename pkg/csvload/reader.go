package csvload

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// DefaultVertexLabel is used for vertex rows without a ~label.
const DefaultVertexLabel = "vertex"

// PropertyValue is one non-empty property cell.
type PropertyValue struct {
	Key         string
	Values      []any
	Cardinality Cardinality
}

// Record is one data row.
type Record struct {
	ID     string
	Labels []string
	From   string
	To     string

	Properties []PropertyValue

	// Line is the line of the row in the source file.
	Line int
}

// Label returns the first label of the record.
func (r *Record) Label() string {
	if len(r.Labels) == 0 {
		return ""
	}
	return r.Labels[0]
}

// Reader reads records from a bulk load CSV file.
type Reader struct {
	csv    *csv.Reader
	header *Header
	kind   Kind
}

// NewReader reads the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	fields, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidCSV, "empty file")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCSV, err, "read header")
	}
	if len(fields) > 0 {
		fields[0] = strings.TrimPrefix(fields[0], "\ufeff")
	}

	h, err := ParseHeader(fields)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(fields)
	return &Reader{csv: cr, header: h, kind: h.Kind()}, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header { return r.header }

// Kind reports whether the file holds vertices or edges.
func (r *Reader) Kind() Kind { return r.kind }

// Next returns the next record, or io.EOF.
func (r *Reader) Next() (*Record, error) {
	fields, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if stderrors.As(err, &pe) {
			return nil, errors.Wrap(errors.ErrCodeInvalidCSV, err, "line %d", pe.Line)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidCSV, err, "read row")
	}
	line, _ := r.csv.FieldPos(0)

	rec := &Record{Line: line}
	for i, col := range r.header.Columns {
		cell := fields[i]
		if col.System {
			cell = strings.TrimSpace(cell)
			switch col.Name {
			case ColumnID:
				rec.ID = cell
			case ColumnLabel:
				rec.Labels = splitLabels(cell)
			case ColumnFrom:
				rec.From = cell
			case ColumnTo:
				rec.To = cell
			}
			continue
		}
		if cell == "" {
			continue
		}

		values, err := convertCell(col, cell)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCSV, err, "line %d, column %q", line, col.Name)
		}
		if len(values) == 0 {
			continue
		}
		rec.Properties = append(rec.Properties, PropertyValue{
			Key:         col.Name,
			Values:      values,
			Cardinality: col.Cardinality,
		})
	}

	if rec.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidCSV, "line %d: empty %s", line, ColumnID)
	}
	if r.kind == Edges {
		if rec.From == "" || rec.To == "" {
			return nil, errors.New(errors.ErrCodeInvalidCSV, "line %d: edge needs %s and %s", line, ColumnFrom, ColumnTo)
		}
		if len(rec.Labels) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidCSV, "line %d: edge needs a label", line)
		}
	} else if len(rec.Labels) == 0 {
		rec.Labels = []string{DefaultVertexLabel}
	}
	return rec, nil
}

// ReadAll reads the remaining records.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func splitLabels(cell string) []string {
	var labels []string
	for _, l := range strings.Split(cell, ";") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

func convertCell(col Column, cell string) ([]any, error) {
	if !col.Multi {
		v, err := Convert(col.Type, cell)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}

	var values []any
	for _, part := range SplitMulti(cell) {
		if part == "" {
			continue
		}
		v, err := Convert(col.Type, part)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// SplitMulti splits a multi-valued cell on ";", honouring "\;" escapes.
func SplitMulti(cell string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(cell); i++ {
		switch {
		case cell[i] == '\\' && i+1 < len(cell) && cell[i+1] == ';':
			cur.WriteByte(';')
			i++
		case cell[i] == ';':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(cell[i])
		}
	}
	return append(parts, cur.String())
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Convert parses a cell value as the given type.
func Convert(typ metadata.DataType, s string) (any, error) {
	switch typ {
	case metadata.Boolean:
		return strconv.ParseBool(strings.TrimSpace(s))
	case metadata.Byte:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8)
		return int8(v), err
	case metadata.Short:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16)
		return int16(v), err
	case metadata.Integer:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		return int32(v), err
	case metadata.Long:
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case metadata.Float:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		return float32(v), err
	case metadata.Double:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case metadata.Date:
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, errors.New(errors.ErrCodeInvalidCSV, "invalid date %q", s)
	}
	return s, nil
}
