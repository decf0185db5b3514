// Package httputil talks to Neptune's HTTP interfaces (loader, status,
// streams).
//
// # Overview
//
// [Client] prepares a request through an [endpoints.Endpoint], so it is
// signed with SigV4 when IAM authentication is on and routed through the
// configured proxy. Transient failures are retried with [retry.Do]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 and throttling responses
//
// Each attempt is signed afresh so retries never reuse an expired
// signature.
//
// # Responses
//
// Response bodies are decoded to UTF-8 according to the Content-Type
// charset (sniffed when absent) and then parsed as JSON:
//
//	var status StatusResponse
//	err := client.Do(ctx, eps.Status(), httputil.Request{}, &status)
//
// Non-2xx responses become [errors.Error] values whose cause is an
// [*APIError] carrying Neptune's error code and detailed message.
//
// [endpoints.Endpoint]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/endpoints#Endpoint
// [retry.Do]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/retry#Do
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/neptune-utils/pkg/errors#Error
package httputil
