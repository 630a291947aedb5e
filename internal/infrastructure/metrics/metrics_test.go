package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TasksGenerated("PEER_TO_SUBJECT", 6)
	m.TasksGenerated("PEER_TO_SUBJECT", 2)
	m.TaskTransitioned("ACTIVE", "COMPLETED", "AUTO_COMPLETE")
	m.IncidentRaised("EVALUATION_EXPIRED")
	m.SweepFinished(3, 1, 40*time.Millisecond)

	assert.Equal(t, 8.0, testutil.ToFloat64(m.tasksGenerated.WithLabelValues("PEER_TO_SUBJECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskTransitions.WithLabelValues("ACTIVE", "COMPLETED", "AUTO_COMPLETE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.incidentsRaised.WithLabelValues("EVALUATION_EXPIRED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepTasks.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepTasks.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
