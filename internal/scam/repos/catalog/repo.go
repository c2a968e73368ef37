package catalog

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/common/utils"
	"github.com/haukened/scam-index/internal/scam/domain"
)

// repository implements Repository by composing a Store, the committed
// filter and a DecisionCache. Reads go filter → cache → store.
type repository struct {
	mu     sync.RWMutex
	store  Store
	cache  DecisionCache
	filter MembershipFilter
	logger log.Logger

	filterNegative atomic.Uint64
	falsePositive  atomic.Uint64
}

// NewRepository constructs a Repository. A nil filter sends every lookup to the store.
func NewRepository(store Store, cache DecisionCache, filter MembershipFilter, logger log.Logger) Repository {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &repository{store: store, cache: cache, filter: filter, logger: logger}
}

// Decide returns a LookupDecision for a raw name or URL.
// Policy: a catalog error after a filter hit reports Listed without confirmation.
func (r *repository) Decide(name string) domain.LookupDecision {
	key, err := utils.CanonicalURL(name)
	if err != nil {
		r.logger.Debug(map[string]any{"name": name, "error": err}, "decide_invalid_name")
		return domain.NotListed(strings.TrimSpace(name))
	}
	// 1) checkFilter: early negative if no candidate key can be present
	candidates := r.checkFilter(lookupKeys(key))
	if len(candidates) == 0 {
		r.filterNegative.Add(1)
		return domain.NotListed(key)
	}
	// 2) checkCache
	if d, ok := r.checkCache(key); ok {
		return d
	}
	// 3) checkStore
	dec, cacheable := r.checkStore(key, candidates)
	// 4) updateCache
	if cacheable {
		r.updateCache(key, dec)
	}
	return dec
}

// Swap installs a new filter and purges cached decisions made against the old one.
func (r *repository) Swap(filter MembershipFilter) {
	r.mu.Lock()
	r.filter = filter
	r.cache.Purge()
	r.mu.Unlock()
}

// RepoStats returns cache counters, filter counters and store stats.
func (r *repository) RepoStats() RepoStats {
	hits, misses, evictions := r.cache.Stats()
	return RepoStats{
		Hits:           hits,
		Misses:         misses,
		Evictions:      evictions,
		FilterNegative: r.filterNegative.Load(),
		FalsePositive:  r.falsePositive.Load(),
		Store:          r.store.Stats(),
	}
}

// lookupKeys returns the canonical key followed by its origin
// (scheme://host[:port]) when they differ: a feed entry for a bare domain
// covers every URL on that site.
func lookupKeys(key string) []string {
	origin := utils.OriginOf(key)
	if origin == "" || origin == key {
		return []string{key}
	}
	return []string{key, origin}
}

// checkFilter returns the candidate keys the filter might contain. Without a
// filter every candidate is returned.
func (r *repository) checkFilter(keys []string) []string {
	r.mu.RLock()
	f := r.filter
	r.mu.RUnlock()
	if f == nil {
		return keys
	}
	out := keys[:0:0]
	for _, k := range keys {
		if f.MightContain(k) {
			out = append(out, k)
		}
	}
	return out
}

// checkCache returns a cached decision when present.
func (r *repository) checkCache(key string) (domain.LookupDecision, bool) {
	r.mu.RLock()
	d, ok := r.cache.Get(key)
	r.mu.RUnlock()
	return d, ok
}

// checkStore confirms filter positives against the catalog, most specific key first.
// Decisions derived from a store error are not cacheable.
func (r *repository) checkStore(key string, candidates []string) (domain.LookupDecision, bool) {
	for _, c := range candidates {
		rec, ok, err := r.store.Get(c)
		if err != nil {
			r.logger.Warn(map[string]any{"key": c, "error": err}, "decide_store_error")
			return domain.LookupDecision{Listed: true, MatchedKey: c}, false
		}
		if ok {
			return domain.LookupDecision{Listed: true, Confirmed: true, MatchedKey: c, Record: rec}, true
		}
	}
	r.falsePositive.Add(1)
	r.logger.Debug(map[string]any{"key": key}, "decide_false_positive")
	return domain.NotListed(key), true
}

// updateCache writes the final decision.
func (r *repository) updateCache(key string, d domain.LookupDecision) {
	r.mu.Lock()
	r.cache.Put(key, d)
	r.mu.Unlock()
}
