package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// DefaultScheme is prefixed to names that are not already fully qualified URLs.
const DefaultScheme = "https"

var (
	ErrEmptyName = errors.New("empty name")
	ErrNoHost    = errors.New("name has no host")
)

// schemePrefix matches a leading RFC 3986 scheme followed by "://".
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CanonicalURL converts a feed name (a bare domain or a full URL) into the
// membership key stored in the filter:
//   - DefaultScheme:// is prefixed when the name carries no scheme
//   - scheme and host are lowercased, host converted to punycode, trailing dots removed
//   - the scheme's default port and a bare "/" path are dropped
//
// Path, query and fragment are otherwise preserved verbatim.
func CanonicalURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyName
	}
	if !schemePrefix.MatchString(s) {
		s = DefaultScheme + "://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host, err := CanonicalHost(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("host %q: %w", u.Hostname(), err)
	}
	if host == "" {
		return "", fmt.Errorf("%q: %w", raw, ErrNoHost)
	}
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] != port {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u.Host = host

	if u.Path == "/" && u.RawQuery == "" && u.Fragment == "" {
		u.Path = ""
		u.RawPath = ""
	}
	return u.String(), nil
}

// HostOf returns the canonical host of a canonical URL produced by CanonicalURL.
func HostOf(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// OriginOf returns scheme://host[:port] of a canonical URL, or "" when it
// cannot be parsed.
func OriginOf(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
