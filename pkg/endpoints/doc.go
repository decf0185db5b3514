// Package endpoints builds the addresses of a Neptune cluster's HTTP and
// WebSocket interfaces and prepares requests against them.
//
// # Overview
//
// [New] validates the cluster host, normalises internationalised names to
// their ASCII form and, when IAM database authentication is enabled,
// resolves AWS credentials:
//
//	eps, err := endpoints.New(ctx, endpoints.Options{
//	    Host:   "db.cluster-abc.us-east-1.neptune.amazonaws.com",
//	    Region: "us-east-1",
//	    IAM:    true,
//	})
//	loader := eps.Loader()
//	req, err := loader.PrepareRequest(ctx, http.MethodGet, "", nil, nil, nil)
//
// # Signing
//
// Requests are signed with Signature Version 4 for the neptune-db service.
// The signature always covers the Neptune host, even when the request is
// routed through a proxy (a load balancer in front of the cluster). Set
// RemoveHostHeader when the proxy must see its own host name instead.
//
// # Credentials
//
// An explicit [aws.CredentialsProvider] wins. Otherwise the default AWS
// credential chain is used. When RoleARN is set the resolved credentials
// are used to assume that role through STS.
//
// [aws.CredentialsProvider]: https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/aws#CredentialsProvider
package endpoints
