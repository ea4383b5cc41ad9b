package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	queryCounter  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	indexedRows   prometheus.Gauge
	indexedCells  prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		queryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gsi",
				Name:      "queries_total",
				Help:      "Total number of spatial predicate queries",
			},
			[]string{"op", "status"},
		),
		queryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gsi",
				Name:      "query_duration_seconds",
				Help:      "Spatial predicate query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		indexedRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gsi",
				Name:      "indexed_rows",
				Help:      "Number of rows in the served index",
			},
		),
		indexedCells: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gsi",
				Name:      "indexed_cells",
				Help:      "Number of distinct representative cells in the served index",
			},
		),
	}
}
