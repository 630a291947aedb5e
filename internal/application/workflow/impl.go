package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	taskRepo       port.EvaluationTaskRepository
	transitionRepo port.TransitionRepository
	txManager      port.TransactionManager
	clock          port.Clock
	dispatcher     dispatcher.Dispatcher
	metrics        port.MetricsRecorder
	logger         Logger
}

// EngineOption configures the task engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for post-transition hooks
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithClock overrides the wall clock
func WithClock(c port.Clock) EngineOption {
	return func(e *engineImpl) {
		e.clock = c
	}
}

// WithMetrics records every applied transition
func WithMetrics(m port.MetricsRecorder) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// NewEngine creates a new task engine
func NewEngine(
	taskRepo port.EvaluationTaskRepository,
	transitionRepo port.TransitionRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) TaskEngine {
	e := &engineImpl{
		taskRepo:       taskRepo,
		transitionRepo: transitionRepo,
		txManager:      txManager,
		clock:          port.SystemClock{},
		metrics:        port.NopMetrics{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) machineFor(task *entity.EvaluationTask, hasUsableScore bool) domainwf.StateMachine {
	now := e.clock.Now()
	return BuildTaskStateMachine(task.Status, TaskGuards{
		WithinWindow: func(context.Context) bool { return !now.After(task.Deadline) },
		Overdue:      func(context.Context) bool { return now.After(task.Deadline) },
		Scored:       func(context.Context) bool { return hasUsableScore },
	})
}

// Apply fires trigger and persists the result
func (e *engineImpl) Apply(ctx context.Context, task *entity.EvaluationTask, trigger domainwf.Trigger, actor string, hasUsableScore bool) (*Change, error) {
	if task == nil {
		return nil, fmt.Errorf("task cannot be nil")
	}
	if !task.Status.IsValid() {
		return nil, fmt.Errorf("%w: task %d has status %q", domainwf.ErrInvalidState, task.ID, task.Status)
	}

	machine := e.machineFor(task, hasUsableScore)
	previous := machine.State()

	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrGuardFailed) {
			return nil, fmt.Errorf("%w: task %d: %v", entity.ErrIllegalTransition, task.ID, err)
		}
		return nil, fmt.Errorf("state machine fire failed: %w", err)
	}

	now := e.clock.Now()
	change := &Change{
		Task:     task,
		Previous: previous,
		Current:  machine.State(),
		Trigger:  trigger,
		Actor:    actor,
		At:       now,
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		task.Status = change.Current
		task.UpdatedAt = now
		if trigger == domainwf.TriggerOpen && task.OpenedAt == nil {
			task.OpenedAt = &now
		}
		if change.Terminal() && task.FinalizedAt == nil {
			task.FinalizedAt = &now
		}

		if err := e.taskRepo.Save(txCtx, task); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}

		transition := &entity.TaskTransition{
			TaskID:         task.ID,
			PreviousStatus: previous.String(),
			NewStatus:      change.Current.String(),
			Trigger:        trigger.String(),
			Actor:          actor,
			OccurredAt:     now,
		}
		if err := e.transitionRepo.Create(txCtx, transition); err != nil {
			return fmt.Errorf("failed to create transition record: %w", err)
		}

		return nil
	})
	if err != nil {
		task.Status = previous
		return nil, err
	}

	e.metrics.TaskTransitioned(previous.String(), change.Current.String(), trigger.String())
	return change, nil
}

// Publish emits events for committed changes. Terminal hooks run
// synchronously so an incident exists by the time the caller returns.
func (e *engineImpl) Publish(ctx context.Context, changes ...*Change) {
	if e.dispatcher == nil {
		return
	}

	for _, change := range changes {
		if change == nil {
			continue
		}

		statusEvent := event.NewEvent(
			event.TypeTaskStatusChanged,
			change.Task.AssignmentID,
			change.Task.ID,
			map[string]interface{}{
				event.KeyPreviousStatus: change.Previous.String(),
				event.KeyNewStatus:      change.Current.String(),
				event.KeyTrigger:        change.Trigger.String(),
				event.KeyActor:          change.Actor,
			},
			change.At,
		)
		e.dispatcher.DispatchAsync(ctx, statusEvent)

		if !change.Terminal() {
			continue
		}

		terminalEvent := statusEvent.Follow(event.TypeTaskTerminal, statusEvent.Payload, change.At)
		if change.Task.Score != nil {
			terminalEvent = terminalEvent.WithPayload(event.KeyScore, *change.Task.Score)
		}
		if err := e.dispatcher.Dispatch(ctx, terminalEvent); err != nil && e.logger != nil {
			e.logger.Error("Post-transition hook failed",
				"task_id", change.Task.ID,
				"status", change.Current.String(),
				"error", err,
			)
		}
	}
}

// PermittedTriggers lists triggers that would succeed now
func (e *engineImpl) PermittedTriggers(ctx context.Context, task *entity.EvaluationTask, hasUsableScore bool) []domainwf.Trigger {
	if task == nil || !task.Status.IsValid() {
		return nil
	}

	machine := e.machineFor(task, hasUsableScore)
	var permitted []domainwf.Trigger
	for _, trigger := range machine.PermittedTriggers() {
		if machine.CanFire(ctx, trigger) {
			permitted = append(permitted, trigger)
		}
	}
	return permitted
}
