package catalog

// StoreStats reports lightweight store metrics and metadata.
// Values are read from the store in a cheap, read-only transaction.
type StoreStats struct {
	Version     uint64 // snapshot version (0 if never built)
	UpdatedUnix int64  // last updated unix time (0 if unknown)
	RunID       string // build run that produced the snapshot
	Records     uint64 // number of catalogued records
}

// RepoStats exposes repository-level counters and underlying store stats.
// All counters are best-effort snapshots.
type RepoStats struct {
	Hits           uint64 // cache hits
	Misses         uint64 // cache misses
	Evictions      uint64 // cache evictions
	FilterNegative uint64 // lookups answered by the filter alone
	FalsePositive  uint64 // filter positives the catalog did not confirm
	Store          StoreStats
}
