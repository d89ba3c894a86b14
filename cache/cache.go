// Package cache implements the build-cache/manifest extension: a
// content-addressed skip-list that lets the driver avoid re-emitting a
// header whose source and effective configuration have not changed,
// mirroring the teacher stack's schema-deployment hash/exists/upload cycle.
package cache

import (
	"context"
	"crypto/sha256"
	"time"
)

// CacheKey identifies one (source content, effective configuration) pair.
type CacheKey struct {
	SourceHash [32]byte
	ConfigHash [32]byte
}

// ManifestEntry records the result of the most recent successful Parse for
// a CacheKey.
type ManifestEntry struct {
	Key         CacheKey
	OutputPath  string
	OutputHash  [32]byte
	GeneratedAt time.Time
}

// Store is implemented by each cache backend (SQL, SQLite, file).
type Store interface {
	Lookup(ctx context.Context, key CacheKey) (ManifestEntry, bool, error)
	Record(ctx context.Context, entry ManifestEntry) error
	Close() error
}

// Lister is implemented by every Store in this package, exposing the
// read-only reporting and manual-eviction operations behind the `cache ls`
// and `cache clear` CLI subcommands without widening the core Store
// interface the driver depends on.
type Lister interface {
	List(ctx context.Context) ([]ManifestEntry, error)
	Clear(ctx context.Context) error
}

// HashBytes returns the sha256 digest of b, the building block for both
// SourceHash and OutputHash.
func HashBytes(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// ConfigHash digests the subset of invocation flags that change a Parse
// call's output: the token, tab width, and strip flag.
func ConfigHash(token string, tabWidth int, strip bool) [32]byte {
	h := sha256.New()
	h.Write([]byte(token))
	h.Write([]byte{byte(tabWidth)})
	if strip {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
