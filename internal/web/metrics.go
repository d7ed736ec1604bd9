package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values.
const (
	PageDashboard = "dashboard"
	PageDetail    = "detail"
	PagePreview   = "preview"

	StatusOK       = "200"
	StatusBadInput = "400"
	StatusNotFound = "404"
	StatusLimited  = "429"
	StatusError    = "500"
	StatusUpstream = "502"

	FetchOK       = "ok"
	FetchUpstream = "upstream_status"
	FetchError    = "error"
)

var (
	// PageHitsTotal counts page requests by page and HTTP status code.
	PageHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foia_explorer_page_hits_total",
		Help: "Total number of dashboard page hits",
	}, []string{"page", "status"})

	// SearchLatency measures end-to-end search latency, DB query included.
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "foia_explorer_search_latency_seconds",
		Help:    "Latency of email search execution and rendering",
		Buckets: prometheus.DefBuckets,
	})

	// PreviewFetchTotal counts preview PDF fetches by outcome.
	PreviewFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foia_explorer_preview_fetch_total",
		Help: "Total number of preview PDF fetches",
	}, []string{"outcome"})
)
