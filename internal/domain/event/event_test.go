package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	valid := []Type{
		TypeAssignmentCreated,
		TypeAssignmentUpdated,
		TypeAssignmentDeleted,
		TypeTaskStatusChanged,
		TypeTaskTerminal,
		TypeIncidentRaised,
	}
	for _, typ := range valid {
		assert.True(t, typ.IsValid(), "type %s", typ)
	}

	assert.False(t, Type("instance.approved").IsValid())
	assert.False(t, Type("").IsValid())
	assert.Equal(t, "task.terminal", TypeTaskTerminal.String())
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	evt := NewEvent(TypeTaskTerminal, 7, 42, map[string]interface{}{KeyNewStatus: "EXPIRED"}, at)

	require.NotNil(t, evt)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, TypeTaskTerminal, evt.Type)
	assert.Equal(t, int64(7), evt.AssignmentID)
	assert.Equal(t, int64(42), evt.TaskID)
	assert.Equal(t, at, evt.Timestamp)
	assert.Equal(t, "EXPIRED", evt.GetPayloadString(KeyNewStatus))
}

func TestEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		evt := NewEvent(TypeTaskStatusChanged, 1, int64(i), nil, time.Now())
		assert.False(t, seen[evt.ID], "duplicate event id %s", evt.ID)
		seen[evt.ID] = true
	}
}

func TestEvent_Follow(t *testing.T) {
	at := time.Now()
	root := NewEvent(TypeTaskTerminal, 3, 9, nil, at)
	next := root.Follow(TypeIncidentRaised, map[string]interface{}{KeyIncidentID: int64(5)}, at)

	assert.NotEqual(t, root.ID, next.ID)
	assert.Equal(t, root.CorrelationID, next.CorrelationID)
	assert.Equal(t, root.TaskID, next.TaskID)
	assert.Equal(t, int64(5), next.GetPayloadInt(KeyIncidentID))
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeTaskStatusChanged, 1, 2, map[string]interface{}{KeyTrigger: "SUBMIT"}, time.Now())
	updated := original.WithPayload(KeyScore, 12.5)

	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, 12.5, updated.GetPayloadFloat(KeyScore))
	assert.Equal(t, "SUBMIT", updated.GetPayloadString(KeyTrigger))
	_, exists := original.Payload[KeyScore]
	assert.False(t, exists, "original payload must not change")
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeAssignmentCreated, 1, 0, map[string]interface{}{
		"int":     7,
		"int64":   int64(8),
		"float":   9.0,
		"string":  "x",
		"unknown": struct{}{},
	}, time.Now())

	assert.Equal(t, int64(7), evt.GetPayloadInt("int"))
	assert.Equal(t, int64(8), evt.GetPayloadInt("int64"))
	assert.Equal(t, int64(9), evt.GetPayloadInt("float"))
	assert.Equal(t, 7.0, evt.GetPayloadFloat("int"))
	assert.Equal(t, "x", evt.GetPayloadString("string"))
	assert.Equal(t, "", evt.GetPayloadString("int"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("unknown"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("missing"))
}
