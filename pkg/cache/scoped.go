package cache

// ScopedKeyer wraps a Keyer with a prefix, so several deployments or tenants
// can share one Redis instance without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TraceKey generates a prefixed trace key.
func (k *ScopedKeyer) TraceKey(assemblyHash string, opts TraceKeyOpts) string {
	return k.prefix + k.inner.TraceKey(assemblyHash, opts)
}

// GraphKey generates a prefixed graph key.
func (k *ScopedKeyer) GraphKey(assemblyHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(assemblyHash, opts)
}
