package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/csvload"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// Format is an output file format.
type Format string

const (
	// FormatCSV writes bulk loader CSV with typed headers.
	FormatCSV Format = "csv"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// ParseFormat parses "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown export format %q (want csv or json)", s)
}

// WriterFactory routes elements to per-label output files.
type WriterFactory[T any] interface {
	// Write appends element to the file of its label, creating the file
	// and its header on first use. Safe for concurrent use.
	Write(element T) error
	// Files returns the paths written so far, in creation order.
	Files() []string
	// Close flushes and closes every file.
	Close() error
}

// encoder renders elements of one type in one format.
type encoder[T any] struct {
	ext    string
	label  func(T) string
	header func(md *metadata.LabelMetadata) string
	encode func(element T, md *metadata.LabelMetadata) ([]byte, error)
}

// fileWriterFactory writes one file per label below dir.
type fileWriterFactory[T any] struct {
	dir string
	enc encoder[T]
	md  *metadata.PropertiesMetadata

	mu    sync.Mutex
	files map[string]*labelFile
	order []string
}

type labelFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	md   *metadata.LabelMetadata
}

func newFileWriterFactory[T any](dir string, enc encoder[T], md *metadata.PropertiesMetadata) *fileWriterFactory[T] {
	if md == nil {
		md = metadata.NewPropertiesMetadata()
	}
	return &fileWriterFactory[T]{dir: dir, enc: enc, md: md, files: make(map[string]*labelFile)}
}

func (f *fileWriterFactory[T]) Write(element T) error {
	lf, err := f.file(f.enc.label(element))
	if err != nil {
		return err
	}
	line, err := f.enc.encode(element, lf.md)
	if err != nil {
		return err
	}

	lf.mu.Lock()
	defer lf.mu.Unlock()
	if _, err := lf.w.Write(line); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", lf.path)
	}
	return lf.w.WriteByte('\n')
}

func (f *fileWriterFactory[T]) file(label string) (*labelFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lf, ok := f.files[label]; ok {
		return lf, nil
	}

	md, ok := f.md.Label(label)
	if !ok {
		md = metadata.NewPropertiesMetadata().AddLabel(label)
	}
	path := filepath.Join(f.dir, fileName(label, len(f.order))+f.enc.ext)
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	lf := &labelFile{path: path, f: file, w: bufio.NewWriter(file), md: md}
	if f.enc.header != nil {
		if _, err := lf.w.WriteString(f.enc.header(md) + "\n"); err != nil {
			file.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
		}
	}
	f.files[label] = lf
	f.order = append(f.order, label)
	return lf, nil
}

func (f *fileWriterFactory[T]) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.order))
	for i, l := range f.order {
		out[i] = f.files[l].path
	}
	return out
}

func (f *fileWriterFactory[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, l := range f.order {
		lf := f.files[l]
		lf.mu.Lock()
		if err := lf.w.Flush(); err != nil && first == nil {
			first = err
		}
		if err := lf.f.Close(); err != nil && first == nil {
			first = err
		}
		lf.mu.Unlock()
	}
	return first
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// fileName turns a label into a file name. The sequence number keeps
// labels that sanitise to the same name apart.
func fileName(label string, seq int) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(label, "_"), "_.")
	if name == "" {
		name = "label"
	}
	return fmt.Sprintf("%s-%d", name, seq)
}

// csvHeader renders the system columns followed by one typed column per
// property, e.g. name:string or tags:string[].
func csvHeader(system ...string) func(md *metadata.LabelMetadata) string {
	return func(md *metadata.LabelMetadata) string {
		cols := append([]string{}, system...)
		for _, key := range md.Keys() {
			p, _ := md.Property(key)
			col := key + p.DataType.TypeDescription()
			if p.Multi {
				col += "[]"
			}
			cols = append(cols, col)
		}
		return strings.Join(cols, ",")
	}
}

// csvCells formats the properties in header order. Missing properties
// leave empty cells and properties absent from the metadata are dropped.
func csvCells(props map[string]any, md *metadata.LabelMetadata) []string {
	cells := make([]string, 0, md.Len())
	for _, key := range md.Keys() {
		p, _ := md.Property(key)
		v, ok := props[key]
		if !ok {
			cells = append(cells, "")
			continue
		}
		values, isList := v.([]any)
		switch {
		case !isList:
			cells = append(cells, p.DataType.Format(v))
		case len(values) == 0:
			cells = append(cells, "")
		case len(values) == 1 && !p.Multi:
			cells = append(cells, p.DataType.Format(values[0]))
		default:
			cells = append(cells, p.DataType.FormatList(values))
		}
	}
	return cells
}

// jsonObject adds the properties to obj using the metadata types.
func jsonObject(obj map[string]any, props map[string]any, md *metadata.LabelMetadata) map[string]any {
	for key, v := range props {
		p, ok := md.Property(key)
		if !ok {
			p = metadata.PropertyMetadata{DataType: metadata.DataTypeFor(v)}
		}
		values, isList := v.([]any)
		switch {
		case !isList:
			obj[key] = p.DataType.JSONValue(v)
		case len(values) == 1 && !p.Multi:
			obj[key] = p.DataType.JSONValue(values[0])
		default:
			out := make([]any, len(values))
			for i, x := range values {
				out[i] = p.DataType.JSONValue(x)
			}
			obj[key] = out
		}
	}
	return obj
}

func quoted(v any) string { return metadata.String.Format(v) }

func nodeEncoder(format Format) encoder[Node] {
	label := func(n Node) string { return n.Label }
	if format == FormatJSON {
		return encoder[Node]{
			ext:   ".json",
			label: label,
			encode: func(n Node, md *metadata.LabelMetadata) ([]byte, error) {
				obj := map[string]any{csvload.ColumnID: fmt.Sprint(n.ID), csvload.ColumnLabel: n.Label}
				return json.Marshal(jsonObject(obj, n.Properties, md))
			},
		}
	}
	return encoder[Node]{
		ext:    ".csv",
		label:  label,
		header: csvHeader(csvload.ColumnID, csvload.ColumnLabel),
		encode: func(n Node, md *metadata.LabelMetadata) ([]byte, error) {
			cells := append([]string{quoted(n.ID), quoted(n.Label)}, csvCells(n.Properties, md)...)
			return []byte(strings.Join(cells, ",")), nil
		},
	}
}

func edgeEncoder(format Format) encoder[Edge] {
	label := func(e Edge) string { return e.Label }
	if format == FormatJSON {
		return encoder[Edge]{
			ext:   ".json",
			label: label,
			encode: func(e Edge, md *metadata.LabelMetadata) ([]byte, error) {
				obj := map[string]any{
					csvload.ColumnID:    fmt.Sprint(e.ID),
					csvload.ColumnLabel: e.Label,
					csvload.ColumnFrom:  fmt.Sprint(e.From),
					csvload.ColumnTo:    fmt.Sprint(e.To),
				}
				return json.Marshal(jsonObject(obj, e.Properties, md))
			},
		}
	}
	return encoder[Edge]{
		ext:    ".csv",
		label:  label,
		header: csvHeader(csvload.ColumnID, csvload.ColumnFrom, csvload.ColumnTo, csvload.ColumnLabel),
		encode: func(e Edge, md *metadata.LabelMetadata) ([]byte, error) {
			cells := append([]string{quoted(e.ID), quoted(e.From), quoted(e.To), quoted(e.Label)}, csvCells(e.Properties, md)...)
			return []byte(strings.Join(cells, ",")), nil
		},
	}
}
