package indexer

import (
	"fmt"

	"github.com/haukened/scam-index/internal/scam/repos/bloom"
)

// MembershipFilter is what verification needs from a reloaded filter.
type MembershipFilter interface {
	MightContain(key string) bool
}

// Loader turns serialized bytes back into a filter.
type Loader func(data []byte) (MembershipFilter, error)

// LoadBloom is the default Loader.
func LoadBloom(data []byte) (MembershipFilter, error) {
	f, err := bloom.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Verify reloads data and requires every inserted key to test positive.
// A nil load uses LoadBloom. Any failure wraps ErrIntegrity.
func Verify(data []byte, inserted []string, load Loader) error {
	if load == nil {
		load = LoadBloom
	}
	f, err := load(data)
	if err != nil {
		return fmt.Errorf("%w: reload: %w", ErrIntegrity, err)
	}
	if f == nil {
		return fmt.Errorf("%w: reload returned no filter", ErrIntegrity)
	}
	var (
		missing int
		first   string
	)
	for _, k := range inserted {
		if !f.MightContain(k) {
			if missing == 0 {
				first = k
			}
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d of %d keys missing, first %q", ErrIntegrity, missing, len(inserted), first)
	}
	return nil
}
