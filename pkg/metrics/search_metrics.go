// Package metrics exposes Prometheus collectors for the search process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SearchRequestsTotal counts unified search requests by outcome.
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of unified search requests by status",
		},
		[]string{"status"}, // "ok", "bad_request", "unavailable", "cancelled", "internal"
	)

	SearchRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_request_duration_ms",
			Help:    "Duration of a full unified search request in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// ChannelDuration tracks latency of each retrieval channel independently.
	ChannelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_channel_duration_ms",
			Help:    "Duration of a single retrieval channel in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"channel"}, // "vector", "asr", "ocr"
	)

	ChannelResultCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_channel_results_count",
			Help:    "Number of candidate ids returned by a retrieval channel",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"channel"},
	)

	ChannelTimeoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_channel_timeout_total",
			Help: "Total number of retrieval channels that hit their per-call timeout",
		},
		[]string{"channel"},
	)

	ChannelErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_channel_error_total",
			Help: "Total number of retrieval channel failures, recovered locally",
		},
		[]string{"channel"},
	)

	// FTSFallbackTotal tracks which tier of the full-text fallback chain served a request.
	FTSFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_fts_fallback_total",
			Help: "Total number of full-text searches served by each fallback tier",
		},
		[]string{"source", "tier"}, // source: "asr"/"ocr"; tier: "native", "tsvector", "substring"
	)

	FusionCandidateCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_fusion_candidate_count",
			Help:    "Number of distinct candidates entering rank fusion",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
	)

	ObjectFilterDroppedCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_object_filter_dropped_count",
			Help:    "Number of candidates removed by the object-count filter per request",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
		},
	)

	NeighborRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neighbor_requests_total",
			Help: "Total number of neighbor/image-search requests by status",
		},
		[]string{"operation", "status"}, // operation: "neighbors"/"image_search"
	)
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(ChannelDuration)
	prometheus.MustRegister(ChannelResultCount)
	prometheus.MustRegister(ChannelTimeoutTotal)
	prometheus.MustRegister(ChannelErrorTotal)
	prometheus.MustRegister(FTSFallbackTotal)
	prometheus.MustRegister(FusionCandidateCount)
	prometheus.MustRegister(ObjectFilterDroppedCount)
	prometheus.MustRegister(NeighborRequestsTotal)
}
