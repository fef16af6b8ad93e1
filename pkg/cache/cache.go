// Package cache stores pipeline results and rendered artifacts.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the HTTP service, and [NullCache] when caching is disabled. Keys are
// derived by a [Keyer] from content hashes, so a changed problem file never
// hits a stale entry and entries only expire to bound disk use.
//
// Cache failures are never fatal: callers treat an error like a miss.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	// Get returns the stored data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Time-to-live of cached entries.
const (
	TTLResult   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// ResultKeyOpts are the run options that change a pipeline result for the
// same problem.
type ResultKeyOpts struct {
	Exclusiveness  string `json:"exclusiveness,omitempty"`
	MaxChainLength int    `json:"max_chain_length,omitempty"`
}

// ArtifactKeyOpts select one rendering of a result.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ResultKey is the key of the pipeline result for a problem hash.
	ResultKey(problemHash string, opts ResultKeyOpts) string

	// ArtifactKey is the key of a rendering of a result hash.
	ArtifactKey(resultHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key parts into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey generates a key for a pipeline result.
func (DefaultKeyer) ResultKey(problemHash string, opts ResultKeyOpts) string {
	return hashKey("result", problemHash, opts)
}

// ArtifactKey generates a key for a rendered artifact.
func (DefaultKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultHash, opts)
}
