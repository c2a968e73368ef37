package utils

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// hostProfile maps hostnames the way a browser does for lookup, but tolerates
// underscores and other non-STD3 labels that show up in scam feeds.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
)

// CanonicalDNSName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// CanonicalHost returns the ASCII (punycode) lowercase form of a hostname.
// IP literals are returned unchanged.
func CanonicalHost(host string) (string, error) {
	host = CanonicalDNSName(host)
	if host == "" || net.ParseIP(host) != nil {
		return host, nil
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", err
	}
	return CanonicalDNSName(ascii), nil
}
