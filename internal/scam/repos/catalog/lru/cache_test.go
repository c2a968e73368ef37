package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/scam-index/internal/scam/domain"
)

func listed(key string) domain.LookupDecision {
	return domain.LookupDecision{Listed: true, Confirmed: true, MatchedKey: key}
}

func TestCache_GetPut(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	_, ok := c.Get("https://a.example")
	assert.False(t, ok)

	c.Put("https://a.example", listed("https://a.example"))
	d, ok := c.Get("https://a.example")
	require.True(t, ok)
	assert.True(t, d.Listed)
	assert.Equal(t, 1, c.Len())

	hits, misses, evictions := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(0), evictions)
}

func TestCache_EvictsOldest(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Put("https://a.example", listed("https://a.example"))
	c.Put("https://b.example", listed("https://b.example"))
	c.Put("https://c.example", listed("https://c.example"))

	_, ok := c.Get("https://a.example")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
	_, _, evictions := c.Stats()
	assert.Equal(t, uint64(1), evictions)
}

func TestCache_Purge(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	c.Put("https://a.example", listed("https://a.example"))
	c.Put("https://b.example", domain.NotListed("https://b.example"))

	c.Purge()
	assert.Equal(t, 0, c.Len())
	_, _, evictions := c.Stats()
	assert.Equal(t, uint64(2), evictions)
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	c.Put("https://a.example", listed("https://a.example"))
	_, ok := c.Get("https://a.example")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Purge()

	hits, misses, evictions := c.Stats()
	assert.Zero(t, hits)
	assert.Equal(t, uint64(1), misses)
	assert.Zero(t, evictions)
}
