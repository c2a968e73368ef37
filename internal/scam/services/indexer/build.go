package indexer

import (
	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/common/utils"
	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/repos/bloom"
)

// Options sizes the filter produced by Build. Zero values take the filter defaults.
type Options struct {
	FPRate      float64
	Growth      uint32
	MinCapacity uint64 // floor for the first slice capacity; 0 sizes to the candidate count
}

// BuildStats counts what happened to each input record.
type BuildStats struct {
	Fetched    int
	Malformed  int
	Excluded   int
	Duplicates int
	Inserted   int
}

// BuildResult is the in-memory outcome of Build.
type BuildResult struct {
	Filter   *bloom.Filter
	Inserted []string            // canonical keys in insertion order
	Records  []domain.ScamRecord // kept records, Key set, same order as Inserted
	Stats    BuildStats
}

// Build filters records and inserts the surviving canonical keys into a new
// filter created once for the final candidate count.
func Build(records []domain.ScamRecord, exclusions *domain.ExclusionSet, opts Options, logger log.Logger) (BuildResult, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	stats := BuildStats{Fetched: len(records)}
	if len(records) == 0 {
		return BuildResult{Stats: stats}, ErrEmptyFeed
	}

	seen := make(map[string]struct{}, len(records))
	kept := make([]domain.ScamRecord, 0, len(records))
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		if domain.IsSentinel(rec.Name) {
			stats.Malformed++
			logger.Debug(map[string]any{"id": rec.ID, "name": rec.Name}, "skip_sentinel")
			continue
		}
		key, err := utils.CanonicalURL(rec.Name)
		if err != nil {
			stats.Malformed++
			logger.Debug(map[string]any{"id": rec.ID, "name": rec.Name, "error": err}, "skip_malformed")
			continue
		}
		if exclusions.Contains(utils.HostOf(key)) {
			stats.Excluded++
			logger.Debug(map[string]any{"id": rec.ID, "key": key}, "skip_excluded")
			continue
		}
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
		kept = append(kept, rec.WithKey(key))
	}
	if len(keys) == 0 {
		return BuildResult{Stats: stats}, ErrNoUsableRecords
	}

	capacity := uint64(len(keys))
	if capacity < opts.MinCapacity {
		capacity = opts.MinCapacity
	}
	f := bloom.NewWithParams(bloom.Params{Capacity: capacity, FPRate: opts.FPRate, Growth: opts.Growth})
	for _, k := range keys {
		f.Add(k)
	}
	stats.Inserted = len(keys)

	logger.Info(map[string]any{
		"fetched":    stats.Fetched,
		"malformed":  stats.Malformed,
		"excluded":   stats.Excluded,
		"duplicates": stats.Duplicates,
		"inserted":   stats.Inserted,
		"slices":     f.Slices(),
	}, "build_done")
	return BuildResult{Filter: f, Inserted: keys, Records: kept, Stats: stats}, nil
}
