package endpoints

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"golang.org/x/net/idna"

	"github.com/matzehuels/neptune-utils/pkg/config"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// ServiceName is the SigV4 service name for Neptune data plane requests.
const ServiceName = "neptune-db"

// DefaultPort is the port Neptune listens on.
const DefaultPort = 8182

// Options describes a cluster and how to authenticate against it.
type Options struct {
	Host   string
	Port   int
	Region string

	// IAM enables SigV4 request signing.
	IAM bool
	// Credentials overrides the default AWS credential chain.
	Credentials aws.CredentialsProvider
	// RoleARN, when set, is assumed via STS using the resolved credentials.
	RoleARN string

	ProxyDNS         string
	ProxyPort        int
	RemoveHostHeader bool

	// DisableTLS switches to ws:// and http://. Only useful for local
	// Gremlin servers and tests.
	DisableTLS bool
}

// Endpoints is a resolved cluster address.
type Endpoints struct {
	host             string
	port             int
	region           string
	proxyHost        string
	proxyPort        int
	removeHostHeader bool
	tls              bool

	creds  aws.CredentialsProvider
	signer *v4.Signer
	now    func() time.Time
}

// New validates opts and resolves credentials when IAM is enabled.
func New(ctx context.Context, opts Options) (*Endpoints, error) {
	host, err := normalizeHost(opts.Host)
	if err != nil {
		return nil, err
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	if err := errors.ValidatePort(port); err != nil {
		return nil, err
	}

	e := &Endpoints{
		host:             host,
		port:             port,
		region:           opts.Region,
		removeHostHeader: opts.RemoveHostHeader,
		tls:              !opts.DisableTLS,
		now:              time.Now,
	}

	if opts.ProxyDNS != "" {
		proxy, err := normalizeHost(opts.ProxyDNS)
		if err != nil {
			return nil, err
		}
		e.proxyHost = proxy
		e.proxyPort = opts.ProxyPort
		if e.proxyPort == 0 {
			e.proxyPort = DefaultPort
		}
		if err := errors.ValidatePort(e.proxyPort); err != nil {
			return nil, err
		}
	}

	if opts.IAM {
		creds, region, err := resolveCredentials(ctx, opts)
		if err != nil {
			return nil, err
		}
		if err := errors.ValidateRegion(region); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "IAM authentication needs a region")
		}
		e.creds = creds
		e.region = region
		e.signer = v4.NewSigner()
	}

	return e, nil
}

// FromConfig builds Endpoints from the [neptune] config section.
func FromConfig(ctx context.Context, c config.Neptune) (*Endpoints, error) {
	return New(ctx, Options{
		Host:             c.Endpoint,
		Port:             c.Port,
		Region:           c.Region,
		IAM:              c.IAM,
		RoleARN:          c.RoleARN,
		ProxyDNS:         c.ProxyDNS,
		ProxyPort:        c.ProxyPort,
		RemoveHostHeader: c.RemoveHostHeader,
		DisableTLS:       !c.TLS(),
	})
}

// FromEnv builds Endpoints from NEPTUNE_CLUSTER_ENDPOINT and the related
// environment variables.
func FromEnv(ctx context.Context) (*Endpoints, error) {
	cfg := config.Default()
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.RequireEndpoint(); err != nil {
		return nil, err
	}
	return FromConfig(ctx, cfg.Neptune)
}

func normalizeHost(host string) (string, error) {
	if err := errors.ValidateEndpoint(host); err != nil {
		return "", err
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidEndpoint, err, "invalid host name %q", host)
	}
	return ascii, nil
}

// Host returns the ASCII cluster host name.
func (e *Endpoints) Host() string { return e.host }

// Port returns the cluster port.
func (e *Endpoints) Port() int { return e.port }

// Region returns the signing region, empty when IAM is off.
func (e *Endpoints) Region() string { return e.region }

// IAM reports whether requests are signed.
func (e *Endpoints) IAM() bool { return e.signer != nil }

// StreamKind selects a change stream.
type StreamKind string

const (
	PropertyGraphStream StreamKind = "propertygraph"
	SPARQLStream        StreamKind = "sparql"
)

// Gremlin returns the Gremlin WebSocket endpoint.
func (e *Endpoints) Gremlin() *Endpoint { return e.endpoint(true, "/gremlin") }

// SPARQL returns the SPARQL HTTP endpoint.
func (e *Endpoints) SPARQL() *Endpoint { return e.endpoint(false, "/sparql") }

// OpenCypher returns the openCypher HTTP endpoint.
func (e *Endpoints) OpenCypher() *Endpoint { return e.endpoint(false, "/openCypher") }

// Loader returns the bulk loader endpoint.
func (e *Endpoints) Loader() *Endpoint { return e.endpoint(false, "/loader") }

// Status returns the instance status endpoint.
func (e *Endpoints) Status() *Endpoint { return e.endpoint(false, "/status") }

// Stream returns the change stream endpoint of the given kind.
func (e *Endpoints) Stream(kind StreamKind) *Endpoint {
	return e.endpoint(false, "/"+string(kind)+"/stream")
}

func (e *Endpoints) endpoint(websocket bool, path string) *Endpoint {
	scheme := "http"
	if websocket {
		scheme = "ws"
	}
	if e.tls {
		scheme += "s"
	}
	return &Endpoint{eps: e, scheme: scheme, path: path}
}
