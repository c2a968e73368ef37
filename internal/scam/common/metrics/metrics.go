// Package metrics defines the Prometheus collectors reported by an index
// build and writes them in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scam_index"

// Metrics holds the collectors of a single build run.
type Metrics struct {
	registry *prometheus.Registry

	Records             *prometheus.GaugeVec
	FilterSlices        prometheus.Gauge
	FilterBytes         prometheus.Gauge
	FilterCapacity      prometheus.Gauge
	FilterEstimatedFP   prometheus.Gauge
	BuildDuration       prometheus.Gauge
	BuildSuccess        prometheus.Gauge
	LastSuccessUnixTime prometheus.Gauge
	CatalogVersion      prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Feed records seen by the last build, by outcome (fetched, malformed, excluded, duplicate, inserted).",
			},
			[]string{"outcome"},
		),
		FilterSlices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_slices",
			Help:      "Number of slices in the committed filter.",
		}),
		FilterBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_bytes",
			Help:      "Size of the serialized filter artifact in bytes.",
		}),
		FilterCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_capacity",
			Help:      "Total designed capacity of the committed filter.",
		}),
		FilterEstimatedFP: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_estimated_fp_rate",
			Help:      "Compound false-positive estimate of the committed filter.",
		}),
		BuildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of the last build run.",
		}),
		BuildSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_success",
			Help:      "1 if the last build committed a verified filter, 0 otherwise.",
		}),
		LastSuccessUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build.",
		}),
		CatalogVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_version",
			Help:      "Snapshot version of the record catalog.",
		}),
	}

	m.registry.MustRegister(
		m.Records,
		m.FilterSlices,
		m.FilterBytes,
		m.FilterCapacity,
		m.FilterEstimatedFP,
		m.BuildDuration,
		m.BuildSuccess,
		m.LastSuccessUnixTime,
		m.CatalogVersion,
	)
	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the current values to path. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
