package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/alexanderramin/waypoint/internal/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's prometheus collectors on a private registry so
// tests and multiple engines never collide on the global one. It is also a
// UseCaseObserver and an llm.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Triggers       *prometheus.CounterVec
	Pivots         *prometheus.CounterVec
	Parses         *prometheus.CounterVec
	DepthCapped    prometheus.Counter
	Classifier     *prometheus.HistogramVec
	UseCases       *prometheus.HistogramVec
	TripsEvaluated *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_triggers_total",
			Help: "Triggers that survived cooldown, by type.",
		}, []string{"type"}),
		Pivots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_pivots_total",
			Help: "Pivot lifecycle outcomes.",
		}, []string{"outcome"}),
		Parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_parse_attempts_total",
			Help: "Free-text parse attempts by outcome.",
		}, []string{"outcome"}),
		DepthCapped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_pivot_depth_capped_total",
			Help: "Pivots suppressed by the depth cap.",
		}),
		Classifier: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_classifier_latency_seconds",
			Help:    "Intent classifier call latency.",
			Buckets: []float64{.05, .1, .25, .5, 1, 1.5, 2.5, 5},
		}, []string{"success"}),
		UseCases: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_use_case_duration_seconds",
			Help:    "Engine use case duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"use_case", "success"}),
		TripsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_trips_evaluated_total",
			Help: "Trip evaluations by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.Triggers, m.Pivots, m.Parses, m.DepthCapped, m.Classifier, m.UseCases, m.TripsEvaluated)
	return m
}

// Registry exposes the private registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	m.UseCases.WithLabelValues(event.Name, strconv.FormatBool(event.Success)).Observe(event.Duration.Seconds())
}

func (m *Metrics) OnCallComplete(event llm.CallEvent) {
	m.Classifier.WithLabelValues(strconv.FormatBool(event.Success)).Observe(float64(event.LatencyMs) / 1000)
}

var (
	_ UseCaseObserver = (*Metrics)(nil)
	_ llm.Observer    = (*Metrics)(nil)
)
