package port

import "time"

// MetricsRecorder receives engine counters. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	TasksGenerated(taskType string, count int)
	TaskTransitioned(from, to, trigger string)
	IncidentRaised(category string)
	SweepFinished(processed, failed int, elapsed time.Duration)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) TasksGenerated(string, int)              {}
func (NopMetrics) TaskTransitioned(string, string, string) {}
func (NopMetrics) IncidentRaised(string)                   {}
func (NopMetrics) SweepFinished(int, int, time.Duration)   {}
