/*
Package observability exposes engine activity as Prometheus metrics.

Metrics attach to an instance's event stream, so everything the engine
already reports (ticks, status changes, debug hits, faults) is counted
without the execution path knowing about Prometheus.
*/
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/events"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	ticks         *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	breakpoints   *prometheus.CounterVec
	watches       *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canopy",
			Name:      "ticks_total",
			Help:      "Completed ticks per execution instance.",
		}, []string{"execution_id"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canopy",
			Name:      "node_status_changes_total",
			Help:      "Node status transitions, labeled by resulting status.",
		}, []string{"execution_id", "status"}),
		breakpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canopy",
			Name:      "breakpoints_hit_total",
			Help:      "Breakpoint pauses per execution instance.",
		}, []string{"execution_id"}),
		watches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canopy",
			Name:      "watches_triggered_total",
			Help:      "Watch triggers per execution instance.",
		}, []string{"execution_id"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canopy",
			Name:      "errors_total",
			Help:      "Contained runtime faults and handler errors.",
		}, []string{"execution_id"}),
	}
	reg.MustRegister(m.ticks, m.statusChanges, m.breakpoints, m.watches, m.errors)
	return m
}

// Attach subscribes the collectors to an emitter. Returns the
// subscription id.
func (m *Metrics) Attach(e *events.Emitter) string {
	return e.Subscribe(func(ev domain.Event) {
		switch ev.Type {
		case domain.EventTickCompleted:
			m.ticks.WithLabelValues(ev.ExecutionID).Inc()
		case domain.EventNodeStatusChanged:
			if p, ok := ev.Payload.(domain.StatusChangePayload); ok {
				m.statusChanges.WithLabelValues(ev.ExecutionID, string(p.To)).Inc()
			}
		case domain.EventBreakpointHit:
			m.breakpoints.WithLabelValues(ev.ExecutionID).Inc()
		case domain.EventWatchTriggered:
			m.watches.WithLabelValues(ev.ExecutionID).Inc()
		case domain.EventErrorOccurred:
			m.errors.WithLabelValues(ev.ExecutionID).Inc()
		}
	},
		domain.EventTickCompleted,
		domain.EventNodeStatusChanged,
		domain.EventBreakpointHit,
		domain.EventWatchTriggered,
		domain.EventErrorOccurred,
	)
}
