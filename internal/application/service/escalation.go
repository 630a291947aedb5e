package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	"github.com/garyjia/staff-evaluation/internal/domain/scoring"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// EscalationEmitter turns failed evaluations into incidents
type EscalationEmitter interface {
	// OnTerminal raises an incident for an EXPIRED task or a COMPLETED task
	// below the pass mark. Other tasks are ignored. Returns nil, nil when
	// nothing was raised.
	OnTerminal(ctx context.Context, task *entity.EvaluationTask) (*entity.Incident, error)

	// ReportLowScore is the manual path: a supervisor of the area flags a
	// completed, failing task
	ReportLowScore(ctx context.Context, taskID int64, supervisorID string) (*entity.Incident, error)

	// ListIncidents returns the latest incidents about a person, newest first
	ListIncidents(ctx context.Context, personID string, limit int) ([]*entity.Incident, error)

	// Register subscribes the emitter to terminal task events
	Register(d dispatcher.Dispatcher)
}

type escalationEmitterImpl struct {
	taskRepo       port.EvaluationTaskRepository
	assignmentRepo port.AssignmentRepository
	incidentRepo   port.IncidentRepository
	roster         port.RosterProvider
	notifier       port.Notifier
	txManager      port.TransactionManager
	clock          port.Clock
	policy         scoring.Policy
	metrics        port.MetricsRecorder
	notifyTimeout  time.Duration
	logger         Logger
}

// NewEscalationEmitter creates a new EscalationEmitter
func NewEscalationEmitter(
	taskRepo port.EvaluationTaskRepository,
	assignmentRepo port.AssignmentRepository,
	incidentRepo port.IncidentRepository,
	roster port.RosterProvider,
	notifier port.Notifier,
	txManager port.TransactionManager,
	clock port.Clock,
	policy scoring.Policy,
	metrics port.MetricsRecorder,
	logger Logger,
) EscalationEmitter {
	return &escalationEmitterImpl{
		taskRepo:       taskRepo,
		assignmentRepo: assignmentRepo,
		incidentRepo:   incidentRepo,
		roster:         roster,
		notifier:       notifier,
		txManager:      txManager,
		clock:          clock,
		policy:         policy,
		metrics:        metrics,
		notifyTimeout:  10 * time.Second,
		logger:         logger,
	}
}

// Register subscribes OnTerminal to task.terminal
func (e *escalationEmitterImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeTaskTerminal, "escalation-emitter", e.handleTerminal)
}

func (e *escalationEmitterImpl) handleTerminal(ctx context.Context, evt *event.Event) error {
	task, err := loadTask(ctx, e.taskRepo, evt.TaskID)
	if err != nil {
		return err
	}
	_, err = e.OnTerminal(ctx, task)
	return err
}

// OnTerminal classifies the task and raises at most one incident per category
func (e *escalationEmitterImpl) OnTerminal(ctx context.Context, task *entity.EvaluationTask) (*entity.Incident, error) {
	var category entity.IncidentCategory
	var description string

	switch {
	case task.Status == domainwf.StateExpired:
		category = entity.IncidentEvaluationExpired
		description = fmt.Sprintf("%s evaluation of %s by %s expired unscored at %s",
			task.TaskType, task.SubjectID, task.EvaluatorID, task.Deadline.UTC().Format(time.RFC3339))
	case task.Status == domainwf.StateCompleted && task.Score != nil && !e.policy.Passing(*task.Score):
		category = entity.IncidentEvaluationBelowThreshold
		description = fmt.Sprintf("%s evaluation of %s by %s completed with %.2f, below %.2f",
			task.TaskType, task.SubjectID, task.EvaluatorID, *task.Score, e.policy.PassThreshold)
	default:
		return nil, nil
	}

	a, err := e.assignmentRepo.GetByID(ctx, task.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	reporter := entity.ActorSystem
	if a != nil && a.CreatedBy != "" {
		reporter = a.CreatedBy
	}

	return e.raise(ctx, task, category, reporter, description)
}

// ReportLowScore raises a below-threshold incident on behalf of a supervisor
func (e *escalationEmitterImpl) ReportLowScore(ctx context.Context, taskID int64, supervisorID string) (*entity.Incident, error) {
	task, err := loadTask(ctx, e.taskRepo, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != domainwf.StateCompleted || task.Score == nil {
		return nil, fmt.Errorf("%w: task %d is %s", entity.ErrIllegalTransition, task.ID, task.Status)
	}
	if e.policy.Passing(*task.Score) {
		return nil, fmt.Errorf("%w: task %d passed with %.2f", entity.ErrIllegalTransition, task.ID, *task.Score)
	}

	a, err := loadAssignment(ctx, e.assignmentRepo, task.AssignmentID)
	if err != nil {
		return nil, err
	}
	roster, err := e.roster.GetActiveRoster(ctx, a.AreaID)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	if !containsPerson(roster.Supervisors, supervisorID) {
		return nil, fmt.Errorf("%w: %s does not supervise area %d", entity.ErrNotPermitted, supervisorID, a.AreaID)
	}

	description := fmt.Sprintf("%s evaluation of %s scored %.2f, reported by supervisor %s",
		task.TaskType, task.SubjectID, *task.Score, supervisorID)
	return e.raise(ctx, task, entity.IncidentEvaluationBelowThreshold, supervisorID, description)
}

// ListIncidents caps limit at 200 and defaults it to 50
func (e *escalationEmitterImpl) ListIncidents(ctx context.Context, personID string, limit int) ([]*entity.Incident, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	incidents, err := e.incidentRepo.ListByAffected(ctx, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if incidents == nil {
		incidents = []*entity.Incident{}
	}
	return incidents, nil
}

// raise creates the incident unless one exists for (task, category), then
// notifies the affected person. Notification errors are only logged.
func (e *escalationEmitterImpl) raise(ctx context.Context, task *entity.EvaluationTask, category entity.IncidentCategory, reporter, description string) (*entity.Incident, error) {
	var incident *entity.Incident
	created := false

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := e.incidentRepo.FindByTaskAndCategory(txCtx, task.ID, category)
		if err != nil {
			return fmt.Errorf("check existing incident: %w", err)
		}
		if existing != nil {
			incident = existing
			return nil
		}

		now := e.clock.Now()
		incident = &entity.Incident{
			TaskID:      task.ID,
			OccurredAt:  now,
			Description: description,
			Category:    category,
			ReporterID:  reporter,
			AffectedID:  task.SubjectID,
			CreatedAt:   now,
		}
		if err := e.incidentRepo.Create(txCtx, incident); err != nil {
			return fmt.Errorf("create incident: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to raise incident",
			"task_id", task.ID,
			"category", string(category),
			"error", err)
		return nil, err
	}

	if !created {
		return incident, nil
	}

	e.metrics.IncidentRaised(string(category))
	e.logger.Info("Incident raised",
		"incident_id", incident.ID,
		"task_id", task.ID,
		"category", string(category),
		"affected_id", incident.AffectedID)

	e.notify(ctx, incident)
	return incident, nil
}

func (e *escalationEmitterImpl) notify(ctx context.Context, incident *entity.Incident) {
	if e.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	if err := e.notifier.Notify(nctx, incident.AffectedID, incidentMessage(incident)); err != nil {
		e.logger.Error("Failed to notify affected person",
			"incident_id", incident.ID,
			"affected_id", incident.AffectedID,
			"error", err)
	}
}

func incidentMessage(incident *entity.Incident) string {
	switch incident.Category {
	case entity.IncidentEvaluationExpired:
		return "An evaluation about you closed without a score. " + incident.Description
	case entity.IncidentEvaluationBelowThreshold:
		return "An evaluation about you finished below the pass mark. " + incident.Description
	default:
		return incident.Description
	}
}

func containsPerson(people []entity.PersonRef, id string) bool {
	for _, p := range people {
		if p.ID == id {
			return true
		}
	}
	return false
}
