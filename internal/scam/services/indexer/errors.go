package indexer

import "errors"

var (
	// ErrEmptyFeed is returned when the feed yields no records at all.
	ErrEmptyFeed = errors.New("feed returned no records")
	// ErrNoUsableRecords is returned when every record was malformed, excluded or duplicated.
	ErrNoUsableRecords = errors.New("no usable records after filtering")
	// ErrIntegrity is returned when the reloaded filter does not contain an inserted key.
	ErrIntegrity = errors.New("filter integrity check failed")
)
