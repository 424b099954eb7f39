// Package metrics holds the Prometheus collectors shared by the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blast_cache_lookups_total",
		Help: "Snapshot cache lookups by result (local_hit, shared_hit, miss)",
	}, []string{"result"})

	CacheFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blast_cache_fetches_total",
		Help: "Snapshot fetches issued to the host by outcome (ok, error)",
	}, []string{"outcome"})

	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blast_cache_evictions_total",
		Help: "Entries leaving a cache tier (local demotions, shared evictions)",
	}, []string{"tier"})

	CacheSharedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blast_cache_shared_bytes",
		Help: "Compressed bytes held by the shared snapshot tier",
	})

	PipelineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blast_pipeline_queue_depth",
		Help: "Block changes waiting for a worker",
	})

	PipelineBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blast_pipeline_batch_size",
		Help: "Current adaptive commit batch size",
	})

	PipelineChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blast_pipeline_changes_total",
		Help: "Block changes by outcome (committed, duplicate, failed, dropped)",
	}, []string{"outcome"})

	PipelineCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blast_pipeline_commits_total",
		Help: "Batches marshalled onto the host writer",
	})

	PipelineTickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blast_pipeline_tick_seconds",
		Help:    "Host tick duration observed by the throttle monitor",
		Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.04, 0.05, 0.075, 0.1, 0.25},
	})

	ExplosionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blast_explosion_duration_seconds",
		Help:    "Wall time of destruction passes by kind (crater, shockwave, detonation)",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	ExplosionBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blast_explosion_blocks_total",
		Help: "Blocks submitted for mutation by kind (crater, shockwave)",
	}, []string{"kind"})

	JournalDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blast_journal_dropped_total",
		Help: "Journal records dropped because the writer was closed or its buffer was full",
	})
)
