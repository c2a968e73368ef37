package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Values(t *testing.T) {
	m := New()
	m.Records.WithLabelValues("inserted").Set(3)
	m.BuildSuccess.Set(1)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			values[f.GetName()] += metric.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 3.0, values["scam_index_records"])
	assert.Equal(t, 1.0, values["scam_index_build_success"])
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.FilterSlices.Set(2)
	m.Records.WithLabelValues("excluded").Set(1)

	path := filepath.Join(t.TempDir(), "scam_index.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "scam_index_filter_slices 2")
	assert.Contains(t, string(b), `scam_index_records{outcome="excluded"} 1`)
}

func TestMetrics_WriteTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, New().WriteTextfile(""))
}
