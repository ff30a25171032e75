package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_allocations_total",
			Help: "Completed allocation operations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	allocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticket_allocation_duration_seconds",
			Help:    "Duration of allocation operations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"mode"},
	)

	chunkRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_allocation_chunk_retries_total",
			Help: "Batch chunks retried after a uniqueness collision",
		},
	)

	numbersRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticket_numbers_remaining",
			Help: "Advisory count of unclaimed numbers per event",
		},
		[]string{"event_id"},
	)

	lockContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_allocation_lock_contention_total",
			Help: "Allocation jobs rescheduled because the event lock was held",
		},
	)
)

func ObserveAllocation(mode, outcome string, duration time.Duration) {
	allocationsTotal.WithLabelValues(mode, outcome).Inc()
	allocationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func TrackChunkRetry() {
	chunkRetriesTotal.Inc()
}

func SetNumbersRemaining(eventID string, remaining int) {
	numbersRemaining.WithLabelValues(eventID).Set(float64(remaining))
}

func TrackLockContention() {
	lockContentionTotal.Inc()
}
