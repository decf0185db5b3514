package export

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// Type is an element type of the graph.
type Type interface {
	// Name is "nodes" or "edges"; it keys the metadata collection.
	Name() string
	// GraphClient returns the metadata side of the type's graph client.
	GraphClient(q Querier) MetadataClient
	// Dir picks the type's output directory.
	Dir(dirs Directories) string

	exportRange(ctx context.Context, job rangeJob) (int64, error)
	newSink(dirs Directories, format Format, md *metadata.PropertiesMetadata) sink
}

// ElementType binds a graph client and writers for elements of type T.
type ElementType[T any] struct {
	name    string
	client  func(Querier) GraphClient[T]
	encoder func(Format) encoder[T]
	dir     func(Directories) string
}

func (t *ElementType[T]) Name() string                         { return t.name }
func (t *ElementType[T]) GraphClient(q Querier) MetadataClient { return t.client(q) }
func (t *ElementType[T]) Dir(dirs Directories) string          { return t.dir(dirs) }

// Client returns the typed graph client.
func (t *ElementType[T]) Client(q Querier) GraphClient[T] { return t.client(q) }

// WriterFactory returns writers for the type in format, below the type's
// directory.
func (t *ElementType[T]) WriterFactory(dirs Directories, format Format, md *metadata.PropertiesMetadata) WriterFactory[T] {
	return newFileWriterFactory(t.dir(dirs), t.encoder(format), md)
}

// sink is a WriterFactory with the element type erased.
type sink interface {
	Files() []string
	Close() error
}

func (t *ElementType[T]) newSink(dirs Directories, format Format, md *metadata.PropertiesMetadata) sink {
	return t.WriterFactory(dirs, format, md)
}

type rangeJob struct {
	q      Querier
	sink   sink
	r      Range
	filter LabelsFilter
}

func (t *ElementType[T]) exportRange(ctx context.Context, job rangeJob) (int64, error) {
	w, ok := job.sink.(WriterFactory[T])
	if !ok {
		return 0, errors.New(errors.ErrCodeInternal, "writer for %s has the wrong element type", t.name)
	}
	var n atomic.Int64
	err := t.client(job.q).QueryForValues(ctx, func(e T) error {
		if err := w.Write(e); err != nil {
			return err
		}
		n.Add(1)
		return nil
	}, job.r, job.filter)
	return n.Load(), err
}

var (
	// Nodes are the vertices of the graph.
	Nodes = &ElementType[Node]{
		name:    "nodes",
		client:  func(q Querier) GraphClient[Node] { return NewNodesClient(q) },
		encoder: nodeEncoder,
		dir:     func(d Directories) string { return d.Nodes },
	}
	// Edges are the edges of the graph.
	Edges = &ElementType[Edge]{
		name:    "edges",
		client:  func(q Querier) GraphClient[Edge] { return NewEdgesClient(q) },
		encoder: edgeEncoder,
		dir:     func(d Directories) string { return d.Edges },
	}
)

// Types returns every element type, nodes first.
func Types() []Type { return []Type{Nodes, Edges} }

// ParseType returns the type named "nodes" or "edges".
func ParseType(name string) (Type, error) {
	for _, t := range Types() {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown element type %q (want nodes or edges)", name)
}

// Specification selects what to scan for one element type.
type Specification struct {
	Type   Type
	Labels LabelsFilter
}

// AllSpecifications returns a specification per type with the same filter.
func AllSpecifications(filter LabelsFilter) []Specification {
	specs := make([]Specification, 0, 2)
	for _, t := range Types() {
		specs = append(specs, Specification{Type: t, Labels: filter})
	}
	return specs
}

// Description is the filter description, e.g. "all nodes".
func (s Specification) Description() string {
	return s.Labels.Description(s.Type.Name())
}

// Scan folds every selected element into coll.
func (s Specification) Scan(ctx context.Context, coll *metadata.Collection, q Querier) error {
	return s.scan(ctx, coll, q, AllRange, s.Labels)
}

// Sample folds the first size elements of each selected label into coll.
func (s Specification) Sample(ctx context.Context, coll *metadata.Collection, q Querier, size int64) error {
	labels := s.Labels.Labels()
	if len(labels) == 0 {
		var err error
		if labels, err = s.Type.GraphClient(q).Labels(ctx); err != nil {
			return err
		}
	}
	for _, l := range labels {
		if err := s.scan(ctx, coll, q, Range{Start: 0, End: size}, SpecifiedLabels(l)); err != nil {
			return err
		}
	}
	return nil
}

func (s Specification) scan(ctx context.Context, coll *metadata.Collection, q Querier, r Range, filter LabelsFilter) error {
	md := coll.PropertyMetadataFor(s.Type.Name())
	return s.Type.GraphClient(q).QueryForMetadata(ctx, func(label string, props map[string]any) error {
		md.Update(label, props, true)
		return nil
	}, r, filter)
}

// MetadataCommand produces a metadata collection.
type MetadataCommand interface {
	Execute(ctx context.Context) (*metadata.Collection, error)
}

// CreateFromGraphScan builds metadata from every selected element.
type CreateFromGraphScan struct {
	Specs  []Specification
	Client Querier
	Logger *log.Logger
}

func (c CreateFromGraphScan) Execute(ctx context.Context) (*metadata.Collection, error) {
	return execute(ctx, c.Specs, c.Logger, func(s Specification, coll *metadata.Collection) error {
		return s.Scan(ctx, coll, c.Client)
	})
}

// CreateFromSample builds metadata from the first Size elements of each
// label.
type CreateFromSample struct {
	Specs  []Specification
	Client Querier
	Size   int64
	Logger *log.Logger
}

func (c CreateFromSample) Execute(ctx context.Context) (*metadata.Collection, error) {
	return execute(ctx, c.Specs, c.Logger, func(s Specification, coll *metadata.Collection) error {
		return s.Sample(ctx, coll, c.Client, c.Size)
	})
}

func execute(ctx context.Context, specs []Specification, logger *log.Logger, scan func(Specification, *metadata.Collection) error) (*metadata.Collection, error) {
	if logger == nil {
		logger = log.Default()
	}
	coll := metadata.NewCollection()
	for _, s := range specs {
		start := time.Now()
		logger.Info("Creating " + s.Description() + " metadata")
		if err := scan(s, coll); err != nil {
			return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeQueryFailed), err, "scan %s", s.Description())
		}
		logger.Info("Created "+s.Description()+" metadata", "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return coll, nil
}
