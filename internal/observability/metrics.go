package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "research_mcp"

// Metrics holds the Prometheus collectors of one process. A nil *Metrics is valid
// and records nothing, which is how METRICS_ENABLED=false is wired.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls        *prometheus.CounterVec
	RoutingDecisions *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool calls",
			},
			[]string{"tool", "status"}, // status: success|error
		),

		RoutingDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_decisions_total",
				Help:      "Task routing outcomes",
			},
			[]string{"task", "outcome"}, // outcome: preferred|fallback|unknown_task|no_model
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream API request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),

		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Failed upstream API requests",
			},
			[]string{"operation"},
		),
	}

	m.registry.MustRegister(
		m.ToolCalls,
		m.RoutingDecisions,
		m.UpstreamDuration,
		m.UpstreamErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordToolCall counts one tool invocation.
func (m *Metrics) RecordToolCall(tool string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
}

// RecordRoutingDecision counts one routing outcome for task.
func (m *Metrics) RecordRoutingDecision(task, outcome string) {
	if m == nil {
		return
	}
	m.RoutingDecisions.WithLabelValues(task, outcome).Inc()
}

// ObserveUpstream records the duration and result of one upstream request.
func (m *Metrics) ObserveUpstream(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.UpstreamErrors.WithLabelValues(operation).Inc()
	}
}
