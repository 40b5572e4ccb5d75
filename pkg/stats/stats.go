package stats

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

// Outcome label of a successful transition.
const OutcomeOK = "ok"

var (
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "offer_transitions_total",
			Help:      "Number of offer transitions by type and outcome.",
		},
		[]string{"transition", "outcome"},
	)
	transitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "escrow",
			Name:      "offer_transition_duration_seconds",
			Help:      "Time spent committing an offer transition.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transition"},
	)
	publishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "escrow",
			Name:      "webhook_publish_failures_total",
			Help:      "Number of events that failed to reach some webhook.",
		},
	)
)

func init() {
	prometheus.MustRegister(transitions, transitionDuration, publishFailures)
}

// RecordTransition counts one attempt of the given transition. outcome is
// OutcomeOK or the name of the error that made it fail.
func RecordTransition(transition, outcome string, started time.Time) {
	transitions.WithLabelValues(transition, outcome).Inc()
	transitionDuration.WithLabelValues(transition).Observe(
		time.Since(started).Seconds(),
	)
}

// RecordPublishFailure ...
func RecordPublishFailure() {
	publishFailures.Inc()
}

// EnableMemoryStatistics enables go routine that periodically prints memory
// usage of the go process.
func EnableMemoryStatistics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PrintMemoryStatistics()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// PrintMemoryStatistics prints heap usage and the number of running go
// routines.
func PrintMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.WithFields(log.Fields{
		"heap_mb":    float64(memStats.HeapAlloc) / MEGABYTE,
		"total_mb":   float64(memStats.TotalAlloc) / MEGABYTE,
		"goroutines": runtime.NumGoroutine(),
	}).Info("memory statistics")
}
