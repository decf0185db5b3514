package endpoints

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// emptyPayloadHash is the hex SHA-256 of an empty body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Endpoint is a single Neptune interface, for example the loader.
type Endpoint struct {
	eps    *Endpoints
	scheme string
	path   string
}

// Path returns the interface path, such as /gremlin.
func (ep *Endpoint) Path() string { return ep.path }

// String returns the Neptune address of the interface.
func (ep *Endpoint) String() string {
	return ep.scheme + "://" + ep.neptuneHost() + ep.path
}

// URL returns the address actually dialled: the proxy when one is
// configured, Neptune otherwise.
func (ep *Endpoint) URL() string {
	host := ep.neptuneHost()
	if ep.eps.proxyHost != "" {
		host = net.JoinHostPort(ep.eps.proxyHost, strconv.Itoa(ep.eps.proxyPort))
	}
	return ep.scheme + "://" + host + ep.path
}

func (ep *Endpoint) neptuneHost() string {
	return net.JoinHostPort(ep.eps.host, strconv.Itoa(ep.eps.port))
}

// PrepareRequest builds a request for path below the endpoint (for example
// "/<loadId>" on the loader endpoint). When IAM is enabled the request is
// signed against the Neptune host.
func (ep *Endpoint) PrepareRequest(ctx context.Context, method, path string, query url.Values, body []byte, headers http.Header) (*http.Request, error) {
	target := ep.URL()
	if path != "" {
		target += "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", target)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if ep.eps.proxyHost != "" {
		req.Host = ep.neptuneHost()
	}

	if ep.eps.signer != nil {
		if err := ep.sign(ctx, req, body); err != nil {
			return nil, err
		}
	}

	if ep.eps.removeHostHeader {
		req.Host = ""
	}
	return req, nil
}

func (ep *Endpoint) sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := ep.eps.creds.Retrieve(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnauthorized, err, "retrieve AWS credentials")
	}

	hash := emptyPayloadHash
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		hash = hex.EncodeToString(sum[:])
	}

	err = ep.eps.signer.SignHTTP(ctx, creds, req, hash, ServiceName, ep.eps.region, ep.eps.now())
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnauthorized, err, "sign request")
	}
	return nil
}

// HandshakeHeaders returns the headers for a WebSocket upgrade request to
// the endpoint. When a Host override applies it is carried as a "Host"
// entry, which WebSocket dialers use as the request host.
func (ep *Endpoint) HandshakeHeaders(ctx context.Context) (http.Header, error) {
	req, err := ep.PrepareRequest(ctx, http.MethodGet, "", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	h := req.Header.Clone()
	if req.Host != "" {
		h.Set("Host", req.Host)
	}
	return h, nil
}
