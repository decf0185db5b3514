package endpoints

import (
	"context"
	"net"
	"strings"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// Resolution is the DNS view of a cluster endpoint. Cluster endpoints are
// CNAMEs of the current writer or a reader instance.
type Resolution struct {
	Host     string
	Instance string
	Addrs    []string
}

// Resolve looks up the cluster host. A nil resolver uses net.DefaultResolver.
func (e *Endpoints) Resolve(ctx context.Context, r *net.Resolver) (*Resolution, error) {
	if r == nil {
		r = net.DefaultResolver
	}

	addrs, err := r.LookupHost(ctx, e.host)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "resolve %s", e.host)
	}

	res := &Resolution{Host: e.host, Addrs: addrs}
	if cname, err := r.LookupCNAME(ctx, e.host); err == nil {
		cname = strings.TrimSuffix(cname, ".")
		if cname != e.host {
			res.Instance = cname
		}
	}
	return res, nil
}
