// Package indexer turns the scam feed into a verified, committed filter
// artifact and a matching record catalog.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haukened/scam-index/internal/scam/common/clock"
	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/common/metrics"
	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/gateways/feed"
	"github.com/haukened/scam-index/internal/scam/repos/artifact"
	"github.com/haukened/scam-index/internal/scam/repos/bloom"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
)

// Deps wires an Indexer. Source, Store and Path are required.
type Deps struct {
	Source     feed.Source
	Store      catalog.Store
	Exclusions *domain.ExclusionSet
	Options    Options
	Path       string // committed artifact location
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Logger     log.Logger
	Load       Loader // verification loader; nil uses LoadBloom
}

// Report summarises a successful run.
type Report struct {
	RunID       string
	Stats       BuildStats
	Slices      int
	Capacity    uint64
	EstimatedFP float64
	Bytes       int
	Checksum    uint64
	Meta        domain.CatalogMeta
}

// Indexer runs fetch → build → stage → verify → commit → catalog rebuild.
type Indexer struct {
	deps     Deps
	newRunID func() string
}

// New validates deps and fills defaults.
func New(deps Deps) (*Indexer, error) {
	if deps.Source == nil {
		return nil, errors.New("indexer: nil feed source")
	}
	if deps.Store == nil {
		return nil, errors.New("indexer: nil catalog store")
	}
	if deps.Path == "" {
		return nil, errors.New("indexer: empty artifact path")
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if deps.Load == nil {
		deps.Load = LoadBloom
	}
	return &Indexer{deps: deps, newRunID: uuid.NewString}, nil
}

// Run executes one build. On any error the committed artifact is left as it was.
func (ix *Indexer) Run(ctx context.Context) (rep Report, err error) {
	start := ix.deps.Clock.Now()
	rep.RunID = ix.newRunID()
	logger := ix.deps.Logger
	logger.Info(map[string]any{"run_id": rep.RunID, "path": ix.deps.Path}, "build_start")

	defer func() {
		ix.observe(rep, start, err)
		if err != nil {
			logger.Error(map[string]any{"run_id": rep.RunID, "error": err}, "build_failed")
		}
	}()

	batch, err := ix.deps.Source.Fetch(ctx)
	if err != nil {
		return rep, fmt.Errorf("fetch feed: %w", err)
	}
	if len(batch.Records) == 0 {
		rep.Stats.Malformed = batch.Skipped
		return rep, ErrEmptyFeed
	}

	res, err := Build(batch.Records, ix.deps.Exclusions, ix.deps.Options, logger)
	res.Stats.Fetched += batch.Skipped
	res.Stats.Malformed += batch.Skipped
	rep.Stats = res.Stats
	if err != nil {
		return rep, err
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	data, err := res.Filter.MarshalBinary()
	if err != nil {
		return rep, fmt.Errorf("serialize filter: %w", err)
	}
	rep.Slices = res.Filter.Slices()
	rep.Capacity = res.Filter.Capacity()
	rep.EstimatedFP = res.Filter.EstimatedFPRate()
	rep.Bytes = len(data)
	rep.Checksum, _ = bloom.Checksum(data)

	if err := ix.stageAndCommit(ctx, data, res.Inserted, rep.RunID); err != nil {
		return rep, err
	}

	meta, err := ix.deps.Store.RebuildAll(res.Records, domain.CatalogMeta{
		UpdatedUnix:    ix.deps.Clock.Now().Unix(),
		RunID:          rep.RunID,
		FilterChecksum: rep.Checksum,
	})
	if err != nil {
		return rep, fmt.Errorf("rebuild catalog: %w", err)
	}
	rep.Meta = meta

	logger.Info(map[string]any{
		"run_id":   rep.RunID,
		"inserted": rep.Stats.Inserted,
		"slices":   rep.Slices,
		"bytes":    rep.Bytes,
		"version":  meta.Version,
	}, "build_committed")
	return rep, nil
}

// stageAndCommit writes data next to the target, verifies what was written
// and renames it into place. The staged file is removed on failure.
func (ix *Indexer) stageAndCommit(ctx context.Context, data []byte, inserted []string, runID string) (err error) {
	staged, err := artifact.Stage(ix.deps.Path, data)
	if err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if derr := artifact.Discard(staged); derr != nil {
			ix.deps.Logger.Warn(map[string]any{"staged": staged, "error": derr}, "discard_failed")
		}
	}()

	written, err := artifact.ReadFile(staged)
	if err != nil {
		return err
	}
	if err := Verify(written, inserted, ix.deps.Load); err != nil {
		ix.deps.Logger.Error(map[string]any{"run_id": runID, "error": err}, "verify_failed")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return artifact.Commit(staged, ix.deps.Path)
}

func (ix *Indexer) observe(rep Report, start time.Time, err error) {
	m := ix.deps.Metrics
	if m == nil {
		return
	}
	m.Records.WithLabelValues("fetched").Set(float64(rep.Stats.Fetched))
	m.Records.WithLabelValues("malformed").Set(float64(rep.Stats.Malformed))
	m.Records.WithLabelValues("excluded").Set(float64(rep.Stats.Excluded))
	m.Records.WithLabelValues("duplicate").Set(float64(rep.Stats.Duplicates))
	m.Records.WithLabelValues("inserted").Set(float64(rep.Stats.Inserted))
	m.BuildDuration.Set(ix.deps.Clock.Now().Sub(start).Seconds())
	if err != nil {
		m.BuildSuccess.Set(0)
		return
	}
	m.BuildSuccess.Set(1)
	m.LastSuccessUnixTime.Set(float64(rep.Meta.UpdatedUnix))
	m.FilterSlices.Set(float64(rep.Slices))
	m.FilterBytes.Set(float64(rep.Bytes))
	m.FilterCapacity.Set(float64(rep.Capacity))
	m.FilterEstimatedFP.Set(rep.EstimatedFP)
	m.CatalogVersion.Set(float64(rep.Meta.Version))
}
