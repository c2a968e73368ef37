package utils

import "golang.org/x/net/publicsuffix"

// GetApexDomain returns the registrable domain (eTLD+1) for name, or the
// canonical name itself when it has none (IPs, bare TLDs, single labels).
func GetApexDomain(name string) string {
	name = CanonicalDNSName(name)
	apexDomain, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		apexDomain = name
	}
	return apexDomain
}
