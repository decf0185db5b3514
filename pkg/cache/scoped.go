package cache

// ScopedKeyer prefixes the keys of another Keyer, so several clusters or
// users can share one Redis or MongoDB backend.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix to the keys of inner.
// A nil inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) MetadataKey(endpoint string, opts MetadataKeyOpts) string {
	return k.prefix + k.inner.MetadataKey(endpoint, opts)
}

func (k *ScopedKeyer) StatusKey(endpoint string) string {
	return k.prefix + k.inner.StatusKey(endpoint)
}
