// File: internal/observability/metrics.go
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics groups the Prometheus collectors for the watch/decide/act loop.
// Every method is safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	// Polls counts hash polls. Labels: profile, result (unchanged|changed|error)
	Polls *prometheus.CounterVec

	// Decisions counts LLM decisions. Labels: profile, outcome
	// (continuation|completed|risk_breach|invalid|error)
	Decisions *prometheus.CounterVec

	// LLMAttempts counts transport attempts. Labels: provider, status (success|error|unparsed)
	LLMAttempts *prometheus.CounterVec

	// LLMRequestDuration measures a single transport call in seconds. Labels: provider
	LLMRequestDuration *prometheus.HistogramVec

	// ActionDuration measures action execution time in seconds. Labels: action
	ActionDuration *prometheus.HistogramVec

	// Runs counts finished runs. Labels: profile, state (completed|failed|cancelled)
	Runs *prometheus.CounterVec

	// ActiveRuns tracks runs that have not reached a terminal state.
	ActiveRuns prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to avoid global registration conflicts.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopautoma_polls_total",
			Help: "Region hash polls by result.",
		}, []string{"profile", "result"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopautoma_decisions_total",
			Help: "LLM decisions by outcome.",
		}, []string{"profile", "outcome"}),
		LLMAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopautoma_llm_attempts_total",
			Help: "LLM transport attempts by status.",
		}, []string{"provider", "status"}),
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loopautoma_llm_request_duration_seconds",
			Help:    "Latency of a single LLM transport call.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		ActionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loopautoma_action_duration_seconds",
			Help:    "Action execution time.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"action"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopautoma_runs_total",
			Help: "Finished runs by terminal state.",
		}, []string{"profile", "state"}),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loopautoma_active_runs",
			Help: "Runs currently watching, deciding or acting.",
		}),
	}
}

func (m *Metrics) ObservePoll(profile, result string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(profile, result).Inc()
}

func (m *Metrics) ObserveDecision(profile, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(profile, outcome).Inc()
}

func (m *Metrics) ObserveLLMAttempt(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMAttempts.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveAction(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

func (m *Metrics) RunFinished(profile, state string) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.Runs.WithLabelValues(profile, state).Inc()
}

// ServeMetrics exposes the registry on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
