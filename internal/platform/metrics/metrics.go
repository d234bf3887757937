package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueEntries counts queue entry attempts by result (queued, requeued, ready, full)
	QueueEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_queue_entries_total",
		Help: "Queue entry attempts by result",
	}, []string{"result"})

	QueueAdmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairticket_queue_admissions_total",
		Help: "Users moved from the waiting queue into the active set",
	})

	QueueStaleRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairticket_queue_stale_removed_total",
		Help: "Queued users removed after their heartbeat expired",
	})

	// SchedulerSkipped counts ticks where another instance held the lock
	SchedulerSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_scheduler_skipped_total",
		Help: "Scheduler ticks skipped because the lock was held elsewhere",
	}, []string{"job"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fairticket_job_duration_seconds",
		Help:    "Background job duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"job"})

	SeatSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_seat_selections_total",
		Help: "Live seat selection attempts by result",
	}, []string{"result"})

	HoldsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_holds_released_total",
		Help: "Seat holds released by reason",
	}, []string{"reason"})

	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_compensations_total",
		Help: "Compensating actions by kind and result (applied, stale)",
	}, []string{"kind", "result"})

	LotterySeatsAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairticket_lottery_seats_assigned_total",
		Help: "Seats assigned to paid lottery entrants",
	})

	PaymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fairticket_payments_completed_total",
		Help: "Verified payments by track",
	}, []string{"track"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairticket_rate_limited_total",
		Help: "Requests rejected by the per-caller rate limit",
	})
)
