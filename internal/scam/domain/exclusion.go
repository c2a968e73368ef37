package domain

import (
	"sort"
	"strings"

	"github.com/haukened/scam-index/internal/scam/common/utils"
)

// sentinelNames are feed values that carry a scheme and nothing else.
var sentinelNames = map[string]struct{}{
	"":         {},
	"://":      {},
	"http://":  {},
	"https://": {},
	"http":     {},
	"https":    {},
}

// defaultExclusions are legitimate platforms that appear in scam reports as
// hosting or impersonation targets and must never be flagged themselves.
var defaultExclusions = []string{
	"discord.com",
	"facebook.com",
	"github.com",
	"google.com",
	"instagram.com",
	"medium.com",
	"reddit.com",
	"t.me",
	"telegram.org",
	"twitter.com",
	"x.com",
	"youtube.com",
}

// DefaultExclusions returns a copy of the built-in exclusion domains.
func DefaultExclusions() []string {
	out := make([]string, len(defaultExclusions))
	copy(out, defaultExclusions)
	return out
}

// IsSentinel reports whether name is a malformed scheme-only placeholder.
func IsSentinel(name string) bool {
	_, ok := sentinelNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ExclusionSet holds hostnames that must never be inserted into the filter.
// A host is excluded when it, or its registrable apex, is in the set.
// The zero value excludes nothing. Not safe for concurrent Add.
type ExclusionSet struct {
	hosts map[string]struct{}
}

// NewExclusionSet builds a set from raw domain names. Empty entries are ignored.
func NewExclusionSet(domains ...string) *ExclusionSet {
	s := &ExclusionSet{hosts: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		s.Add(d)
	}
	return s
}

// Add inserts a domain after canonicalisation.
func (s *ExclusionSet) Add(domain string) {
	h, err := utils.CanonicalHost(domain)
	if err != nil || h == "" {
		return
	}
	if s.hosts == nil {
		s.hosts = make(map[string]struct{})
	}
	s.hosts[h] = struct{}{}
}

// Contains reports whether host (or its apex) is excluded.
func (s *ExclusionSet) Contains(host string) bool {
	if s == nil || len(s.hosts) == 0 {
		return false
	}
	h, err := utils.CanonicalHost(host)
	if err != nil || h == "" {
		return false
	}
	if _, ok := s.hosts[h]; ok {
		return true
	}
	_, ok := s.hosts[utils.GetApexDomain(h)]
	return ok
}

// Len returns the number of excluded hosts.
func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hosts)
}

// Domains returns the excluded hosts in sorted order.
func (s *ExclusionSet) Domains() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
