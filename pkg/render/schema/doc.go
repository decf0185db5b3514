// Package schema draws the label graph of a Neptune database.
//
// # Overview
//
// Vertex labels become boxes and every (out label, edge label, in label)
// triple found in the data becomes an arrow. The boxes can list the
// properties of each label with their bulk loader types, taken from the
// metadata built by the export package.
//
// # Usage
//
//	triples, err := schema.EdgeTriples(ctx, client)
//	g := schema.FromMetadata(coll, triples)
//	dot := schema.ToDOT(g, schema.Options{Detailed: true})
//	svg, err := schema.RenderSVG(ctx, dot)
//
// # Dependencies
//
// SVG is rendered in process with [github.com/goccy/go-graphviz]. PDF and
// PNG conversion goes through the render package and needs librsvg.
package schema
