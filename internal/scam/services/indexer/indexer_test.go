package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/scam-index/internal/scam/common/clock"
	"github.com/haukened/scam-index/internal/scam/common/metrics"
	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/gateways/feed"
	"github.com/haukened/scam-index/internal/scam/repos/artifact"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
	"github.com/haukened/scam-index/internal/scam/repos/catalog/bolt"
)

type staticSource struct {
	batch feed.Batch
	err   error
}

func (s staticSource) Fetch(context.Context) (feed.Batch, error) { return s.batch, s.err }

type fixture struct {
	dir   string
	path  string
	store catalog.Store
	m     *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := bolt.New(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &fixture{dir: dir, path: filepath.Join(dir, "scams.sbf"), store: st, m: metrics.New()}
}

func (fx *fixture) indexer(t *testing.T, src feed.Source, load Loader) *Indexer {
	t.Helper()
	ix, err := New(Deps{
		Source:     src,
		Store:      fx.store,
		Exclusions: domain.NewExclusionSet(domain.DefaultExclusions()...),
		Path:       fx.path,
		Clock:      clock.NewMockClock(now),
		Metrics:    fx.m,
		Load:       load,
	})
	require.NoError(t, err)
	ix.newRunID = func() string { return "run-test" }
	return ix
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.stage-*"))
	require.NoError(t, err)
	return matches
}

func TestRun_CommitsVerifiedArtifact(t *testing.T) {
	fx := newFixture(t)
	src := staticSource{batch: feed.Batch{
		Records: records("bank-secure-login.example", "airdrop-claim.example", "twitter.com", "https://"),
		Skipped: 1,
	}}

	rep, err := fx.indexer(t, src, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-test", rep.RunID)
	assert.Equal(t, BuildStats{Fetched: 5, Malformed: 2, Excluded: 1, Inserted: 2}, rep.Stats)
	assert.Equal(t, uint64(1), rep.Meta.Version)
	assert.Equal(t, uint64(2), rep.Meta.Records)
	assert.Equal(t, now.Unix(), rep.Meta.UpdatedUnix)
	assert.Empty(t, stagedFiles(t, fx.dir))

	f, err := artifact.Load(fx.path)
	require.NoError(t, err)
	assert.True(t, f.MightContain("https://bank-secure-login.example"))
	assert.True(t, f.MightContain("https://airdrop-claim.example"))

	rec, ok, err := fx.store.Get("https://airdrop-claim.example")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r1", rec.ID)

	meta, err := fx.store.Meta()
	require.NoError(t, err)
	assert.Equal(t, rep.Checksum, meta.FilterChecksum)
	assert.Equal(t, "run-test", meta.RunID)
}

func TestRun_FailedVerifyKeepsCommittedArtifact(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.indexer(t, staticSource{batch: feed.Batch{Records: records("first.example")}}, nil).Run(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(fx.path)
	require.NoError(t, err)

	broken := func([]byte) (MembershipFilter, error) { return nilFilter{}, nil }
	_, err = fx.indexer(t, staticSource{batch: feed.Batch{Records: records("second.example")}}, broken).Run(context.Background())
	require.ErrorIs(t, err, ErrIntegrity)

	after, err := os.ReadFile(fx.path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, stagedFiles(t, fx.dir))

	_, ok, err := fx.store.Get("https://second.example")
	require.NoError(t, err)
	assert.False(t, ok, "catalog must not advance past a failed verification")
	assert.Equal(t, uint64(1), fx.store.Stats().Version)
}

func TestRun_InputErrorsWriteNothing(t *testing.T) {
	cases := map[string]struct {
		src  staticSource
		want error
	}{
		"fetch error":  {src: staticSource{err: feed.ErrUnsuccessful}, want: feed.ErrUnsuccessful},
		"empty feed":   {src: staticSource{batch: feed.Batch{Skipped: 3}}, want: ErrEmptyFeed},
		"all excluded": {src: staticSource{batch: feed.Batch{Records: records("twitter.com", "http://")}}, want: ErrNoUsableRecords},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			_, err := fx.indexer(t, tc.src, nil).Run(context.Background())
			require.ErrorIs(t, err, tc.want)

			_, statErr := os.Stat(fx.path)
			assert.True(t, os.IsNotExist(statErr))
			assert.Empty(t, stagedFiles(t, fx.dir))
			assert.Equal(t, uint64(0), fx.store.Stats().Version)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.indexer(t, staticSource{batch: feed.Batch{Records: records("a.example")}}, nil).Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	_, statErr := os.Stat(fx.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_Metrics(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.indexer(t, staticSource{batch: feed.Batch{Records: records("a.example", "b.example")}}, nil).Run(context.Background())
	require.NoError(t, err)

	textfile := filepath.Join(fx.dir, "scam_index.prom")
	require.NoError(t, fx.m.WriteTextfile(textfile))
	b, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "scam_index_build_success 1")
	assert.Contains(t, string(b), `scam_index_records{outcome="inserted"} 2`)
	assert.Contains(t, string(b), "scam_index_catalog_version 1")
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
	_, err = New(Deps{Source: staticSource{}})
	assert.Error(t, err)
	_, err = New(Deps{Source: staticSource{}, Store: newFixture(t).store})
	assert.Error(t, err)
}

type nilFilter struct{}

func (nilFilter) MightContain(string) bool { return false }
