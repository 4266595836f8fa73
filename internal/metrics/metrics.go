package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bebther_provider_api_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bebther_provider_api_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	RecordsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bebther_records_saved_total",
			Help: "Total daily weather records written to the store",
		},
	)

	RecordReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bebther_record_reads_total",
			Help: "Total record lookups by date",
		},
		[]string{"found"},
	)
)
