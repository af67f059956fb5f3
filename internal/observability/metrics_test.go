package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObservePoll("codex", "unchanged")
	m.ObservePoll("codex", "unchanged")
	m.ObservePoll("codex", "changed")
	m.ObserveDecision("codex", "risk_breach")
	m.ObserveLLMAttempt("mock", "success", 20*time.Millisecond)
	m.ObserveAction("Type", time.Millisecond)
	m.RunStarted()
	m.RunStarted()
	m.RunFinished("codex", "completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Polls.WithLabelValues("codex", "unchanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("codex", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("codex", "risk_breach")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMAttempts.WithLabelValues("mock", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("codex", "completed")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePoll("p", "changed")
		m.ObserveDecision("p", "completed")
		m.ObserveLLMAttempt("mock", "error", time.Second)
		m.ObserveAction("Key", time.Second)
		m.RunStarted()
		m.RunFinished("p", "failed")
	})
}
