package cache

// ScopedKeyer prefixes every key of an inner Keyer, so that several
// deployments (or test runs) can share one Redis without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GasketKey returns the prefixed gasket key.
func (k *ScopedKeyer) GasketKey(gasketHash string, maxDepth int) string {
	return k.prefix + k.inner.GasketKey(gasketHash, maxDepth)
}

// SeedsKey returns the prefixed seed enumeration key.
func (k *ScopedKeyer) SeedsKey(maxB int64) string {
	return k.prefix + k.inner.SeedsKey(maxB)
}
