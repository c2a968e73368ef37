package domain

// LookupDecision is the outcome of checking a name against the committed index.
// Pure value type.
type LookupDecision struct {
	Listed     bool       // true if the name is reported as a known scam
	Confirmed  bool       // true when the record catalog confirmed the filter hit
	MatchedKey string     // canonical key that was looked up
	Record     ScamRecord // catalog record when Confirmed
}

// IsListed is a convenience accessor.
func (d LookupDecision) IsListed() bool { return d.Listed }

// NotListed returns a negative decision for key.
func NotListed(key string) LookupDecision { return LookupDecision{MatchedKey: key} }
