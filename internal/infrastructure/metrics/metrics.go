// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "staff_evaluation"

// Metrics implements port.MetricsRecorder on Prometheus collectors
type Metrics struct {
	tasksGenerated   *prometheus.CounterVec
	taskTransitions  *prometheus.CounterVec
	incidentsRaised  *prometheus.CounterVec
	sweepTasks       *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	sweepLastSuccess prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		tasksGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "tasks_generated_total",
			Help:      "Evaluation tasks created by assignment fan-out, by task type",
		}, []string{"task_type"}),
		taskTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Task status transitions by source state, target state and trigger",
		}, []string{"from", "to", "trigger"}),
		incidentsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "incidents_total",
			Help:      "Incidents created, by category",
		}, []string{"category"}),
		sweepTasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tasks_total",
			Help:      "Overdue tasks handled by the deadline sweep, by outcome",
		}, []string{"outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of one deadline sweep",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		sweepLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sweep finished",
		}),
	}
}

func (m *Metrics) TasksGenerated(taskType string, count int) {
	m.tasksGenerated.WithLabelValues(taskType).Add(float64(count))
}

func (m *Metrics) TaskTransitioned(from, to, trigger string) {
	m.taskTransitions.WithLabelValues(from, to, trigger).Inc()
}

func (m *Metrics) IncidentRaised(category string) {
	m.incidentsRaised.WithLabelValues(category).Inc()
}

func (m *Metrics) SweepFinished(processed, failed int, elapsed time.Duration) {
	m.sweepTasks.WithLabelValues("processed").Add(float64(processed))
	m.sweepTasks.WithLabelValues("failed").Add(float64(failed))
	m.sweepDuration.Observe(elapsed.Seconds())
	m.sweepLastSuccess.SetToCurrentTime()
}

var _ port.MetricsRecorder = (*Metrics)(nil)
