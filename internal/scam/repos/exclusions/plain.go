// Package exclusions loads the domains that must never be flagged as scams.
package exclusions

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/common/utils"
	"github.com/haukened/scam-index/internal/scam/domain"
)

// ParsePlainList parses a newline-delimited list of domains.
//
// Behavior:
// - '#' starts a comment, whole-line or inline
// - leading "*." or "." markers are dropped; every entry already covers its subdomains
// - names are canonicalised and entries that are not plausible FQDNs are skipped
// - duplicates are removed preserving first-seen order
func ParsePlainList(r io.Reader, logger log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	var out []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		name, err := normalize(raw)
		if err != nil || !isValidFQDN(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "exclusion_skip_invalid")
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclusion list: %w", err)
	}
	logger.Debug(map[string]any{"count": len(out)}, "exclusion_list_parsed")
	return out, nil
}

// Load returns the built-in exclusions merged with extra and, when path is
// not empty, the entries of the list at path (hosts format for files named
// "hosts" or "*.hosts", plain otherwise).
func Load(path string, extra []string) (*domain.ExclusionSet, error) {
	set := domain.NewExclusionSet(domain.DefaultExclusions()...)
	for _, d := range extra {
		set.Add(d)
	}
	if path == "" {
		return set, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclusion file: %w", err)
	}
	defer f.Close()
	names, err := parserFor(path)(f, log.GetLogger())
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		set.Add(n)
	}
	log.Info(map[string]any{"path": path, "file_entries": len(names), "total": set.Len()}, "exclusions_loaded")
	return set, nil
}

var errWildcardOnly = errors.New("wildcard without a name")

func normalize(raw string) (string, error) {
	s := strings.TrimPrefix(raw, "*.")
	s = strings.TrimPrefix(s, ".")
	if s == "" || s == "*" {
		return "", errWildcardOnly
	}
	return utils.CanonicalHost(s)
}

// isValidFQDN requires at least two labels of 1..63 octets, 255 octets in
// total, and a first label starting with a letter or digit.
func isValidFQDN(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return false
		}
	}
	c := labels[0][0]
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
