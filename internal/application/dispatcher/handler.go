package dispatcher

import (
	"context"

	"github.com/garyjia/staff-evaluation/internal/domain/event"
)

// Handler reacts to a domain event. Hooks registered for task.terminal run
// after the transition that produced the event has committed.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for logging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
