package catalog

import "github.com/haukened/scam-index/internal/scam/domain"

// MembershipFilter is the minimal interface the repository needs from the
// committed Bloom filter.
type MembershipFilter interface {
	MightContain(key string) bool
}

// DecisionCache caches lookup decisions by canonical key with basic metrics.
type DecisionCache interface {
	Get(key string) (domain.LookupDecision, bool)
	Put(key string, d domain.LookupDecision)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// Store abstracts the persistent record catalog.
// - Get: the record stored under a canonical key
// - RebuildAll: replace every record and the snapshot metadata atomically
// - Meta/Stats: snapshot metadata and counts; Close: release resources
type Store interface {
	Get(key string) (domain.ScamRecord, bool, error)
	RebuildAll(records []domain.ScamRecord, meta domain.CatalogMeta) (domain.CatalogMeta, error)
	Meta() (domain.CatalogMeta, error)
	Stats() StoreStats
	Close() error
}

// Repository composes filter → cache → store for lookups.
// Decide returns a value-type LookupDecision for a raw name or URL.
// Swap installs a freshly committed filter and clears the cache.
type Repository interface {
	Decide(name string) domain.LookupDecision
	Swap(filter MembershipFilter)
	RepoStats() RepoStats
}
