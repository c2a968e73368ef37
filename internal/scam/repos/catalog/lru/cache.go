// Package lru provides the in-memory decision cache in front of the catalog.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
)

// decisionCache keeps the most recently decided lookups keyed by canonical URL.
type decisionCache struct {
	lru       *lru.Cache[string, domain.LookupDecision]
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New returns a cache holding up to size decisions. A size <= 0 returns a
// pass-through cache that stores nothing but still counts misses.
func New(size int) (catalog.DecisionCache, error) {
	if size <= 0 {
		return &passThrough{}, nil
	}
	dc := &decisionCache{}
	cache, err := lru.NewWithEvict(size, func(string, domain.LookupDecision) {
		dc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func (c *decisionCache) Get(key string) (domain.LookupDecision, bool) {
	d, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
		return d, true
	}
	c.misses.Add(1)
	return domain.LookupDecision{}, false
}

func (c *decisionCache) Put(key string, d domain.LookupDecision) { c.lru.Add(key, d) }

func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge drops every entry; dropped entries count as evictions.
func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

type passThrough struct {
	misses atomic.Uint64
}

func (p *passThrough) Get(string) (domain.LookupDecision, bool) {
	p.misses.Add(1)
	return domain.LookupDecision{}, false
}

func (p *passThrough) Put(string, domain.LookupDecision) {}

func (p *passThrough) Len() int { return 0 }

func (p *passThrough) Purge() {}

func (p *passThrough) Stats() (uint64, uint64, uint64) { return 0, p.misses.Load(), 0 }

var (
	_ catalog.DecisionCache = (*decisionCache)(nil)
	_ catalog.DecisionCache = (*passThrough)(nil)
)
