package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The HTTP service uses it so that several deployments can share one Redis
// database without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "wafermap:prod:")
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

// ResultKey generates a prefixed key for pipeline results.
func (k *ScopedKeyer) ResultKey(problemHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(problemHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultHash, opts)
}
