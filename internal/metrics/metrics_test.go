package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.VoteAccepted(domain.OptionSpotter)
		m.VoteRejected(domain.ErrSignupClosed)
		m.CommandHandled("toggle", "ok")
		m.SnapshotWritten(time.Now(), nil)
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry(), "signup")

	m.VoteAccepted(domain.OptionSpotter)
	m.VoteAccepted(domain.OptionSpotter)
	m.VoteRejected(fmt.Errorf("could not update signup: %w", domain.ErrSignupClosed))
	m.SnapshotWritten(time.Now(), errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.Votes.WithLabelValues("spotter")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Rejections.WithLabelValues("closed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotFailures), 0)
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "not_allowed", RejectionReason(domain.ErrOptionNotAllowed))
	assert.Equal(t, "not_found", RejectionReason(domain.ErrSignupNotFound))
	assert.Equal(t, "internal", RejectionReason(errors.New("io")))
}
