package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal counts completed crawl sessions, labeled by stop reason.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsubs_crawl_sessions_total",
		Help: "The total number of crawl sessions, by stop reason.",
	}, []string{"stop_reason"})
	// IterationsTotal counts snapshot/extract/scroll iterations.
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsubs_crawl_iterations_total",
		Help: "The total number of crawl iterations executed.",
	})
	// EntriesSeenTotal counts raw entries returned by the extraction chain.
	EntriesSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsubs_entries_seen_total",
		Help: "The total number of raw feed entries extracted.",
	})
	// VideosIngestedTotal counts stored rows, labeled inserted/updated.
	VideosIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsubs_videos_ingested_total",
		Help: "The total number of videos written to the store.",
	}, []string{"outcome"})
	// EntriesRejectedTotal counts entries dropped before ingestion.
	EntriesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsubs_entries_rejected_total",
		Help: "The total number of entries rejected, by reason.",
	}, []string{"reason"})
	// ExtractionFailuresTotal counts transient snapshot/extraction errors.
	ExtractionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytsubs_extraction_failures_total",
		Help: "The total number of failed extraction attempts.",
	})
)
