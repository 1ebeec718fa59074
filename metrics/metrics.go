// Package metrics exports Prometheus collectors for agent loops, model
// calls and action dispatches. Metrics implements flow.Observer so it can
// be handed to engine.WithObserver directly.
package metrics

import (
	"errors"
	"time"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "appforge"

// Metrics holds the engine collectors.
type Metrics struct {
	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	modelTokens   *prometheus.CounterVec
	actions       *prometheus.CounterVec
	loops         *prometheus.CounterVec
	iterations    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer. Collectors that are already registered are
// reused, so several engines in one process can share them.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model invocations by role and outcome.",
		}, []string{"role", "status"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Latency of model invocations including streaming.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"role"}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens reported by the model provider.",
		}, []string{"role", "direction"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched action calls by role, kind and outcome.",
		}, []string{"role", "kind", "status"}),
		loops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_total",
			Help:      "Finished agent loops by role and termination reason.",
		}, []string{"role", "reason"}),
		iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_iterations",
			Help:      "Model invocations per finished agent loop.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 30},
		}, []string{"role"}),
	}

	var err error
	if m.modelCalls, err = registerCounterVec(reg, m.modelCalls); err != nil {
		return nil, err
	}
	if m.modelDuration, err = registerHistogramVec(reg, m.modelDuration); err != nil {
		return nil, err
	}
	if m.modelTokens, err = registerCounterVec(reg, m.modelTokens); err != nil {
		return nil, err
	}
	if m.actions, err = registerCounterVec(reg, m.actions); err != nil {
		return nil, err
	}
	if m.loops, err = registerCounterVec(reg, m.loops); err != nil {
		return nil, err
	}
	if m.iterations, err = registerHistogramVec(reg, m.iterations); err != nil {
		return nil, err
	}

	return m, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer) *Metrics {
	m, err := New(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerHistogramVec(reg prometheus.Registerer, h *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return h, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnModelCall implements flow.Observer.
func (m *Metrics) OnModelCall(role core.Role, _ string, usage *model.TokenUsage, dur time.Duration, err error) {
	if m == nil {
		return
	}
	r := string(role)
	m.modelCalls.WithLabelValues(r, status(err)).Inc()
	m.modelDuration.WithLabelValues(r).Observe(dur.Seconds())
	if usage != nil {
		m.modelTokens.WithLabelValues(r, "prompt").Add(float64(usage.PromptTokens))
		m.modelTokens.WithLabelValues(r, "completion").Add(float64(usage.CompletionTokens))
	}
}

// OnAction implements flow.Observer.
func (m *Metrics) OnAction(role core.Role, _ string, kind action.Kind, _ time.Duration, err error) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.actions.WithLabelValues(string(role), string(kind), status(err)).Inc()
}

// OnLoopEnd implements flow.Observer. Loops that hit their iteration bound
// are counted under reason "exhausted", apart from natural completion.
func (m *Metrics) OnLoopEnd(role core.Role, iterations int, reason core.TerminationReason, _ time.Duration) {
	if m == nil {
		return
	}
	m.loops.WithLabelValues(string(role), string(reason)).Inc()
	m.iterations.WithLabelValues(string(role)).Observe(float64(iterations))
}
