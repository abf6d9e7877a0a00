package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

// Metrics - counters of the signup bot. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Votes            *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	SnapshotFailures prometheus.Counter
	SnapshotDuration prometheus.Histogram
}

func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Votes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Accepted votes per option, withdrawals included",
			},
			[]string{"option"},
		),
		Rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejected votes per reason",
			},
			[]string{"reason"},
		),
		Commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Handled admin commands per command and outcome",
			},
			[]string{"command", "outcome"},
		),
		SnapshotFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_failures_total",
				Help:      "Snapshot writes that failed and were dropped",
			},
		),
		SnapshotDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_duration_seconds",
				Help:      "Histogram of snapshot write times",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~0.5s
			},
		),
	}
}

func (m *Metrics) VoteAccepted(option domain.OptionID) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(string(option)).Inc()
}

func (m *Metrics) VoteRejected(err error) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(RejectionReason(err)).Inc()
}

func (m *Metrics) CommandHandled(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

// SnapshotWritten records one snapshot attempt that started at start.
func (m *Metrics) SnapshotWritten(start time.Time, err error) {
	if m == nil {
		return
	}
	m.SnapshotDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.SnapshotFailures.Inc()
	}
}

// RejectionReason maps a vote error to a low-cardinality label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSignupClosed):
		return "closed"
	case errors.Is(err, domain.ErrOptionNotAllowed):
		return "not_allowed"
	case errors.Is(err, domain.ErrUnknownOption):
		return "unknown_option"
	case errors.Is(err, domain.ErrSignupNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
