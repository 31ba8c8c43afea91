// Package metrics exposes Prometheus collectors for definition and
// instance activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the stateflow collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	definitionsTotal   *prometheus.CounterVec
	instancesStarted   *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	instancesCompleted *prometheus.CounterVec
	activeDefinitions  prometheus.Gauge
	activeInstances    prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		definitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_definitions_total",
				Help: "Definition lifecycle operations by action",
			},
			[]string{"action"},
		),
		instancesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_instances_started_total",
				Help: "Instances started per definition",
			},
			[]string{"definition_id"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_transitions_total",
				Help: "Transition requests by definition and outcome",
			},
			[]string{"definition_id", "result"},
		),
		instancesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_instances_completed_total",
				Help: "Instances that reached a final state",
			},
			[]string{"definition_id"},
		),
		activeDefinitions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stateflow_active_definitions",
				Help: "Number of active definitions at the last report",
			},
		),
		activeInstances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stateflow_open_instances",
				Help: "Number of instances not yet completed at the last report",
			},
		),
	}
	reg.MustRegister(
		m.definitionsTotal,
		m.instancesStarted,
		m.transitionsTotal,
		m.instancesCompleted,
		m.activeDefinitions,
		m.activeInstances,
	)
	return m
}

// DefinitionChanged counts a create, update or deactivate.
func (m *Metrics) DefinitionChanged(action string) {
	if m == nil {
		return
	}
	m.definitionsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) InstanceStarted(definitionID string) {
	if m == nil {
		return
	}
	m.instancesStarted.WithLabelValues(definitionID).Inc()
}

// TransitionExecuted counts a transition request; ok is false when it was
// rejected.
func (m *Metrics) TransitionExecuted(definitionID string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.transitionsTotal.WithLabelValues(definitionID, result).Inc()
}

func (m *Metrics) InstanceCompleted(definitionID string) {
	if m == nil {
		return
	}
	m.instancesCompleted.WithLabelValues(definitionID).Inc()
}

// SetTotals records the gauges published by the periodic reporter.
func (m *Metrics) SetTotals(activeDefinitions, openInstances int) {
	if m == nil {
		return
	}
	m.activeDefinitions.Set(float64(activeDefinitions))
	m.activeInstances.Set(float64(openInstances))
}
