package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// Run collectors. The gauges describe the latest published snapshot and are
// overwritten on every run.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "runs_total",
		Help:      "Feed generation runs by result.",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "run_duration_seconds",
		Help:      "End-to-end feed generation time.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful feed run.",
	})

	recordsFetched = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "records_fetched",
		Help:      "Records fetched per category in the latest run, before normalization.",
	}, []string{"category"})

	recordsKept = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "records_kept",
		Help:      "Records kept per category in the latest run.",
	}, []string{"category"})

	recordsDropped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "marketing",
		Subsystem: "feed",
		Name:      "records_dropped",
		Help:      "Records dropped per category and reason in the latest run.",
	}, []string{"category", "reason"})
)

func exportTallies(categories map[string]models.CategoryTally) {
	for cat, t := range categories {
		recordsFetched.WithLabelValues(cat).Set(float64(t.Fetched))
		recordsKept.WithLabelValues(cat).Set(float64(t.Kept))
		recordsDropped.WithLabelValues(cat, "duplicate").Set(float64(t.DroppedDuplicate))
		recordsDropped.WithLabelValues(cat, "malformed").Set(float64(t.DroppedMalformed))
		recordsDropped.WithLabelValues(cat, "out_of_range").Set(float64(t.DroppedOutOfRange))
	}
}
