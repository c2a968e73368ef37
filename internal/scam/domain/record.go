package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScamRecord is one entry of the scam feed.
//
// Notes:
// - Name is the membership key: usually a bare domain, occasionally a full URL.
// - Key holds the canonical URL form of Name once the build pipeline accepted it.
// - The descriptive fields are catalog metadata only; they never enter the filter.
type ScamRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key,omitempty"`
	URL         string    `json:"url,omitempty"`
	Path        string    `json:"path,omitempty"`
	Category    string    `json:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty"`
	Description string    `json:"description,omitempty"`
	Reporter    string    `json:"reporter,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Validate checks the fields every usable record must carry.
func (r ScamRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record id must not be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record %s: name must not be empty", r.ID)
	}
	if r.FetchedAt.IsZero() {
		return fmt.Errorf("record %s: fetchedAt must be set", r.ID)
	}
	return nil
}

// WithKey returns a copy of the record carrying its canonical key.
func (r ScamRecord) WithKey(key string) ScamRecord {
	r.Key = key
	return r
}
