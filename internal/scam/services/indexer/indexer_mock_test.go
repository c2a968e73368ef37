package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/scam-index/internal/scam/common/clock"
	"github.com/haukened/scam-index/internal/scam/domain"
	"github.com/haukened/scam-index/internal/scam/gateways/feed"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(key string) (domain.ScamRecord, bool, error) {
	args := m.Called(key)
	return args.Get(0).(domain.ScamRecord), args.Bool(1), args.Error(2)
}

func (m *mockStore) RebuildAll(records []domain.ScamRecord, meta domain.CatalogMeta) (domain.CatalogMeta, error) {
	args := m.Called(records, meta)
	return args.Get(0).(domain.CatalogMeta), args.Error(1)
}

func (m *mockStore) Meta() (domain.CatalogMeta, error) {
	args := m.Called()
	return args.Get(0).(domain.CatalogMeta), args.Error(1)
}

func (m *mockStore) Stats() catalog.StoreStats { return catalog.StoreStats{} }

func (m *mockStore) Close() error { return nil }

func TestRun_CatalogRebuildArguments(t *testing.T) {
	st := &mockStore{}
	st.On("RebuildAll",
		mock.MatchedBy(func(recs []domain.ScamRecord) bool {
			return len(recs) == 1 && recs[0].Key == "https://a.example"
		}),
		mock.MatchedBy(func(m domain.CatalogMeta) bool {
			return m.RunID == "run-mock" && m.UpdatedUnix == now.Unix() && m.FilterChecksum != 0 && m.Version == 0
		}),
	).Return(domain.CatalogMeta{Version: 9, Records: 1}, nil).Once()

	path := filepath.Join(t.TempDir(), "scams.sbf")
	ix, err := New(Deps{
		Source: staticSource{batch: feed.Batch{Records: records("a.example")}},
		Store:  st,
		Path:   path,
		Clock:  clock.NewMockClock(now),
	})
	require.NoError(t, err)
	ix.newRunID = func() string { return "run-mock" }

	rep, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), rep.Meta.Version)
	st.AssertExpectations(t)
}

func TestRun_CatalogFailureAfterCommit(t *testing.T) {
	st := &mockStore{}
	st.On("RebuildAll", mock.Anything, mock.Anything).Return(domain.CatalogMeta{}, errors.New("disk full")).Once()

	path := filepath.Join(t.TempDir(), "scams.sbf")
	ix, err := New(Deps{
		Source: staticSource{batch: feed.Batch{Records: records("a.example")}},
		Store:  st,
		Path:   path,
	})
	require.NoError(t, err)

	_, err = ix.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild catalog")

	// the verified artifact stays committed; only the catalog lags
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	st.AssertExpectations(t)
}
