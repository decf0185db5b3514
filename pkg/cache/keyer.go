package cache

import (
	"slices"
	"strings"
)

// MetadataKeyOpts are the inputs that change a metadata scan result.
type MetadataKeyOpts struct {
	// Types is the element types scanned ("nodes", "edges").
	Types []string
	// Labels restricts the scan; empty means all labels.
	Labels []string
	// Sample is the number of elements sampled per label, zero for a full
	// scan.
	Sample int
}

// Keyer produces cache keys.
type Keyer interface {
	// MetadataKey is the key of the property metadata scanned from endpoint.
	MetadataKey(endpoint string, opts MetadataKeyOpts) string
	// StatusKey is the key of the last status read from endpoint.
	StatusKey(endpoint string) string
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MetadataKey hashes the endpoint and the normalised options, so label
// order does not matter.
func (DefaultKeyer) MetadataKey(endpoint string, opts MetadataKeyOpts) string {
	types := normalize(opts.Types)
	labels := normalize(opts.Labels)
	return hashKey("metadata", endpoint, types, labels, opts.Sample)
}

func (DefaultKeyer) StatusKey(endpoint string) string {
	return hashKey("status", endpoint)
}

func normalize(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
