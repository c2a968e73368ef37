// Package bloom implements the scalable Bloom filter used as the scam index.
//
// A Filter is an ordered list of fixed-size slices. Every slice is a classic
// Bloom filter whose bit count and hash count are frozen at creation from its
// capacity and target false-positive rate. Insertions always go to the newest
// slice; once it holds its designed capacity a new slice, GrowthRatio times
// larger, is appended. Membership is the OR over all slices, so a key never
// stops testing positive after a later slice is added.
package bloom

import (
	"math"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

const (
	// DefaultFPRate is the per-slice target false-positive rate.
	DefaultFPRate = 0.01
	// DefaultGrowthRatio multiplies the capacity of each appended slice.
	DefaultGrowthRatio uint32 = 2
	// DefaultCapacity sizes the first slice when no expected count is given.
	DefaultCapacity uint64 = 1000
)

// Params fixes the growth policy of a Filter. Zero or out-of-range values
// fall back to the package defaults.
type Params struct {
	Capacity uint64  // designed capacity of the first slice
	FPRate   float64 // target false-positive rate of every slice, in (0,1)
	Growth   uint32  // capacity multiplier for appended slices, >= 2
}

func (p Params) withDefaults() Params {
	if p.Capacity == 0 {
		p.Capacity = DefaultCapacity
	}
	if !validFPRate(p.FPRate) {
		p.FPRate = DefaultFPRate
	}
	if p.Growth < 2 {
		p.Growth = DefaultGrowthRatio
	}
	return p
}

// slice is one fixed-capacity Bloom filter within a Filter.
type slice struct {
	capacity uint64
	fpRate   float64
	count    uint64
	bf       *bitsbloom.BloomFilter
}

func newSlice(capacity uint64, fpRate float64) *slice {
	m, k := Size(capacity, fpRate)
	return &slice{
		capacity: capacity,
		fpRate:   fpRate,
		bf:       bitsbloom.New(uint(m), uint(k)),
	}
}

func (s *slice) full() bool { return s.count >= s.capacity }

// Filter is a scalable Bloom filter. It is not safe for concurrent Add;
// concurrent MightContain calls on a filter that is no longer written are safe.
// The zero value is usable and adopts the default Params on first Add.
type Filter struct {
	fpRate float64
	growth uint32
	slices []*slice
}

// New returns a Filter whose first slice is sized for expected insertions at
// DefaultFPRate and DefaultGrowthRatio.
func New(expected uint64) *Filter {
	return NewWithParams(Params{Capacity: expected})
}

// NewWithParams returns a Filter with an explicit growth policy.
func NewWithParams(p Params) *Filter {
	p = p.withDefaults()
	return &Filter{
		fpRate: p.FPRate,
		growth: p.Growth,
		slices: []*slice{newSlice(p.Capacity, p.FPRate)},
	}
}

// Add inserts key into the newest slice, appending a slice first when the
// newest one has reached its designed capacity.
func (f *Filter) Add(key string) {
	f.AddBytes([]byte(key))
}

// AddBytes is Add for raw keys.
func (f *Filter) AddBytes(key []byte) {
	if len(f.slices) == 0 {
		*f = *NewWithParams(Params{})
	}
	active := f.slices[len(f.slices)-1]
	if active.full() {
		active = newSlice(nextCapacity(active.capacity, f.growth), f.fpRate)
		f.slices = append(f.slices, active)
	}
	active.bf.Add(key)
	active.count++
}

// MightContain reports whether key may have been added. A false result is
// definitive; a true result is wrong with roughly EstimatedFPRate probability.
func (f *Filter) MightContain(key string) bool {
	return f.MightContainBytes([]byte(key))
}

// MightContainBytes is MightContain for raw keys.
func (f *Filter) MightContainBytes(key []byte) bool {
	// newest slices hold the most keys, test them first
	for i := len(f.slices) - 1; i >= 0; i-- {
		if f.slices[i].bf.Test(key) {
			return true
		}
	}
	return false
}

// nextCapacity scales capacity by growth, saturating instead of overflowing.
func nextCapacity(capacity uint64, growth uint32) uint64 {
	if capacity > math.MaxUint64/uint64(growth) {
		return math.MaxUint64
	}
	return capacity * uint64(growth)
}

// SliceStats describes one slice.
type SliceStats struct {
	Capacity uint64  // designed insertions
	Count    uint64  // actual insertions
	FPRate   float64 // target false-positive rate
	Bits     uint64  // m
	Hashes   uint    // k
}

// Stats returns per-slice statistics in creation order.
func (f *Filter) Stats() []SliceStats {
	out := make([]SliceStats, len(f.slices))
	for i, s := range f.slices {
		out[i] = SliceStats{
			Capacity: s.capacity,
			Count:    s.count,
			FPRate:   s.fpRate,
			Bits:     uint64(s.bf.Cap()),
			Hashes:   s.bf.K(),
		}
	}
	return out
}

// Slices returns the number of slices.
func (f *Filter) Slices() int { return len(f.slices) }

// Count returns the total number of insertions.
func (f *Filter) Count() uint64 {
	var n uint64
	for _, s := range f.slices {
		n += s.count
	}
	return n
}

// Capacity returns the summed designed capacity of all slices.
func (f *Filter) Capacity() uint64 {
	var n uint64
	for _, s := range f.slices {
		n += s.capacity
	}
	return n
}

// FPRate returns the per-slice target false-positive rate.
func (f *Filter) FPRate() float64 { return f.fpRate }

// GrowthRatio returns the capacity multiplier for appended slices.
func (f *Filter) GrowthRatio() uint32 { return f.growth }

// EstimatedFPRate returns the compound false-positive probability of the
// filter at its current fill: 1 - prod(1 - p_i) over all slices.
func (f *Filter) EstimatedFPRate() float64 {
	miss := 1.0
	for _, s := range f.slices {
		miss *= 1 - fillRate(s.count, uint64(s.bf.Cap()), s.bf.K())
	}
	return 1 - miss
}
