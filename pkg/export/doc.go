// Package export scans a Neptune property graph and writes it to disk.
//
// A scan first builds property metadata (labels, property names, data
// types and cardinalities) for nodes and edges, either from every element
// or from a sample per label. The metadata then drives the writers: CSV
// files in the bulk loader format with typed headers, or one JSON object
// per line.
//
// Element types are described by [Type] values ([Nodes] and [Edges]).
// Each supplies a [GraphClient] that issues the Gremlin queries and a
// [WriterFactory] that creates per-label output files.
//
//	r := export.NewRunner(client, export.RunnerOptions{Cache: c, Endpoint: ep})
//	stats, err := r.Export(ctx, export.Options{
//	    Specs:     export.AllSpecifications(export.AllLabels),
//	    Format:    export.FormatCSV,
//	    OutputDir: "out",
//	})
//
// Large types are split into ranges that are exported concurrently.
package export
