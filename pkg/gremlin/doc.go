// Package gremlin is a Gremlin Server client for Amazon Neptune.
//
// # Overview
//
// The client speaks the Gremlin WebSocket protocol with GraphSON v3
// serialisation:
//
//   - [Decode] and [Encode] convert between GraphSON and Go values
//   - [G] and [Anon] build traversals as bytecode
//   - [Conn] is one WebSocket connection multiplexing requests by id
//   - [Client] is a lazily dialled pool of connections
//
// # Usage
//
//	client := gremlin.NewClient(eps.Gremlin(), gremlin.Options{PoolSize: 4})
//	defer client.Close()
//
//	n, err := client.Next(ctx, gremlin.G().V().HasLabel("person").Count())
//
// Neptune does not support script parameters, so writes are sent as
// bytecode. Scripts sent with [Client.Submit] are evaluated as
// gremlin-groovy.
//
// # Errors
//
// Error statuses from the server are returned as [*ServerError] wrapped in
// a coded error. [IsRetryable] reports whether a request may succeed on a
// second attempt; [IsConnectionIssue] reports whether the pool should be
// [Client.Reset] first, which is the case after a writer failover.
// Concurrent writers pass the [Client.Generation] they submitted on to
// [Client.ResetIfCurrent] so that one failover causes one reset.
package gremlin
