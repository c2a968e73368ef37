package bloom

import "math"

// Size computes slice parameters from capacity (n) and target FP rate (p)
// using the standard formulas:
//
//	m = - (n * ln p) / (ln 2)^2
//	k = (m / n) * ln 2
//
// n=0 is treated as 1 and an out-of-range p falls back to DefaultFPRate.
// Results are clamped to at least 1 (k to at most 255).
func Size(n uint64, p float64) (m uint64, k uint8) {
	if n == 0 {
		n = 1
	}
	if !validFPRate(p) {
		p = DefaultFPRate
	}
	ln2 := math.Ln2
	m = uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m == 0 {
		m = 1
	}
	kf := math.Max(1, math.Round((float64(m)/float64(n))*ln2))
	if kf > math.MaxUint8 {
		kf = math.MaxUint8
	}
	return m, uint8(kf)
}

func validFPRate(p float64) bool {
	return p > 0 && p < 1
}

// fillRate estimates the false-positive probability of a slice holding n keys
// in m bits with k hash functions: (1 - e^(-k*n/m))^k.
func fillRate(n, m uint64, k uint) float64 {
	if n == 0 || m == 0 {
		return 0
	}
	return math.Pow(1-math.Exp(-float64(k)*float64(n)/float64(m)), float64(k))
}
