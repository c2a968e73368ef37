package exclusions

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"

	"github.com/haukened/scam-index/internal/scam/common/log"
)

// ParseHostsList reads /etc/hosts-style lines ("ADDR name [name...]") and
// returns the hostnames. Wildcards and names starting with '.' are skipped;
// the address field must parse as an IP.
func ParseHostsList(r io.Reader, logger log.Logger) ([]string, error) {
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
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 || net.ParseIP(fields[0]) == nil {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_skip_malformed")
			continue
		}
		for _, raw := range fields[1:] {
			if strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_wildcard")
				continue
			}
			name, err := normalize(raw)
			if err != nil || !isValidFQDN(name) {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid")
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hosts list: %w", err)
	}
	return out, nil
}

// parserFor picks ParseHostsList for files named "hosts" or "*.hosts".
func parserFor(path string) func(io.Reader, log.Logger) ([]string, error) {
	base := strings.ToLower(filepath.Base(path))
	if base == "hosts" || strings.HasSuffix(base, ".hosts") {
		return ParseHostsList
	}
	return ParsePlainList
}
