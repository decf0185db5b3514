// Package pkg provides the libraries behind neptune-utils, a toolkit for
// Amazon Neptune property graphs.
//
// # Overview
//
// neptune-utils connects to a Neptune cluster over Gremlin and the HTTP
// APIs, writes data through Gremlin or the bulk loader, and exports the
// graph with the metadata needed to load it again. The pkg directory is
// organized into four areas:
//
//  1. Connection: [endpoints], [gremlin], [httputil], [retry]
//  2. Writing: [csvload], [batch], [loader]
//  3. Reading: [metadata], [export], [render/schema]
//  4. Support: [config], [cache], [errors], [observability], [buildinfo]
//
// # Architecture
//
// The data flow of an export:
//
//	Neptune cluster
//	      ↓
//	  [endpoints] (host, port, SigV4 signing)
//	      ↓
//	  [gremlin] (WebSocket client, GraphSON v3)
//	      ↓
//	  [export] (scan labels into [metadata], then ranges in parallel)
//	      ↓
//	  CSV / JSON lines + config.json
//
// and of a write:
//
//	Gremlin load format CSV
//	      ↓
//	  [csvload] (typed headers, records)
//	      ↓
//	  [batch] (addV / upsert traversals, retried on
//	           ConcurrentModificationException)
//	      ↓
//	  [gremlin]
//
// Files already in S3 go through [loader], which starts and follows bulk
// load jobs instead.
//
// # Quick Start
//
// Connect and run a query:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/neptune-utils/pkg/endpoints"
//	    "github.com/matzehuels/neptune-utils/pkg/gremlin"
//	)
//
//	ctx := context.Background()
//	eps, err := endpoints.FromEnv(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := gremlin.NewClient(eps.Gremlin(), gremlin.Options{})
//	defer client.Close()
//
//	results, err := client.Submit(ctx, "g.V().limit(10).valueMap(true)", nil)
//
// Export every node and edge:
//
//	runner := export.NewRunner(client, export.RunnerOptions{})
//	stats, err := runner.Export(ctx, export.Options{
//	    Specs:     export.AllSpecifications(export.AllLabels),
//	    Format:    export.FormatCSV,
//	    OutputDir: "out",
//	})
//
// # Errors
//
// Every package returns [errors.Error] values carrying a [errors.Code].
// Codes map to HTTP statuses for the serve command and decide which
// failures [retry] attempts again.
//
// [endpoints]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/endpoints
// [gremlin]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/gremlin
// [httputil]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/httputil
// [retry]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/retry
// [csvload]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/csvload
// [batch]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/batch
// [loader]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/loader
// [metadata]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/metadata
// [export]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/export
// [render/schema]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/render/schema
// [config]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/errors
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/errors#Error
// [errors.Code]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/errors#Code
// [observability]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/buildinfo
package pkg
