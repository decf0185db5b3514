package batch

import (
	"github.com/matzehuels/neptune-utils/pkg/csvload"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
)

// stepFunc appends the steps that write one record.
type stepFunc func(t *gremlin.Traversal, rec *csvload.Record) error

// buildBatch chains the writes of all records into one traversal ending
// in none().
func buildBatch(records []*csvload.Record, build stepFunc) (*gremlin.Traversal, error) {
	t := gremlin.G()
	for _, rec := range records {
		if err := build(t, rec); err != nil {
			return nil, err
		}
	}
	return t.None(), nil
}

func addVertex(t *gremlin.Traversal, rec *csvload.Record) error {
	if err := checkVertex(rec); err != nil {
		return err
	}
	t.AddV(rec.Label()).Property(gremlin.TID, rec.ID)
	vertexProperties(t, rec)
	return nil
}

// upsertVertex writes V(id).fold().coalesce(unfold(), addV(label)...):
// fold() always yields one traverser, so the chain continues whether or
// not the vertex existed.
func upsertVertex(t *gremlin.Traversal, rec *csvload.Record) error {
	if err := checkVertex(rec); err != nil {
		return err
	}
	t.V(rec.ID).Fold().Coalesce(
		gremlin.Anon().Unfold(),
		gremlin.Anon().AddV(rec.Label()).Property(gremlin.TID, rec.ID),
	)
	vertexProperties(t, rec)
	return nil
}

func addEdge(t *gremlin.Traversal, rec *csvload.Record) error {
	if err := checkEdge(rec); err != nil {
		return err
	}
	t.AddE(rec.Label()).
		From(gremlin.Anon().V(rec.From)).
		To(gremlin.Anon().V(rec.To)).
		Property(gremlin.TID, rec.ID)
	edgeProperties(t, rec)
	return nil
}

// upsertEdge looks the edge up by id rather than from its out vertex so
// that a missing endpoint does not end the chain for later records.
func upsertEdge(t *gremlin.Traversal, rec *csvload.Record) error {
	if err := checkEdge(rec); err != nil {
		return err
	}
	t.E(rec.ID).Fold().Coalesce(
		gremlin.Anon().Unfold(),
		gremlin.Anon().AddE(rec.Label()).
			From(gremlin.Anon().V(rec.From)).
			To(gremlin.Anon().V(rec.To)).
			Property(gremlin.TID, rec.ID),
	)
	edgeProperties(t, rec)
	return nil
}

func vertexProperties(t *gremlin.Traversal, rec *csvload.Record) {
	for _, p := range rec.Properties {
		card := gremlin.Single
		if p.Cardinality == csvload.Set {
			card = gremlin.Set
		}
		for _, v := range p.Values {
			t.Property(card, p.Key, v)
		}
	}
}

func edgeProperties(t *gremlin.Traversal, rec *csvload.Record) {
	for _, p := range rec.Properties {
		if len(p.Values) > 0 {
			t.Property(p.Key, p.Values[len(p.Values)-1])
		}
	}
}

func checkVertex(rec *csvload.Record) error {
	if rec.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "vertex without id (line %d)", rec.Line)
	}
	if rec.Label() == "" {
		return errors.New(errors.ErrCodeInvalidInput, "vertex %s has no label", rec.ID)
	}
	return nil
}

func checkEdge(rec *csvload.Record) error {
	if rec.ID == "" || rec.From == "" || rec.To == "" {
		return errors.New(errors.ErrCodeInvalidInput, "edge needs an id, a from and a to vertex (line %d)", rec.Line)
	}
	if rec.Label() == "" {
		return errors.New(errors.ErrCodeInvalidInput, "edge %s has no label", rec.ID)
	}
	return nil
}
