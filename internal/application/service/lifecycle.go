package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	appwf "github.com/garyjia/staff-evaluation/internal/application/workflow"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/scoring"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
	"golang.org/x/sync/errgroup"
)

// MarkInput is one submitted sub-criterion mark
type MarkInput struct {
	SubCriterionID int64   `json:"subcriterion_id"`
	Points         float64 `json:"points"`
}

// SubmitRequest carries one evaluator submission
type SubmitRequest struct {
	TaskID   int64
	Actor    string
	Details  []MarkInput
	Comment  *string
	Finalize bool
}

// TaskDetail is a task with its effective deadline and pass/fail label
type TaskDetail struct {
	Task        *entity.EvaluationTask   `json:"task"`
	Deadline    time.Time                `json:"deadline"`
	Passing     *bool                    `json:"passing,omitempty"`
	Actions     []domainwf.Trigger       `json:"actions"`
	Transitions []*entity.TaskTransition `json:"transitions"`
}

// TaskSummary is one row of a person's task list
type TaskSummary struct {
	ID           int64           `json:"id"`
	AssignmentID int64           `json:"assignment_id"`
	TaskType     entity.TaskType `json:"task_type"`
	EvaluatorID  string          `json:"evaluator_id"`
	SubjectID    string          `json:"subject_id"`
	Status       domainwf.State  `json:"status"`
	Score        *float64        `json:"score,omitempty"`
	Passing      *bool           `json:"passing,omitempty"`
	Deadline     time.Time       `json:"deadline"`
}

// SweepResult summarizes one deadline sweep
type SweepResult struct {
	Scanned           int           `json:"scanned"`
	Transitioned      int           `json:"transitioned"`
	Failed            int           `json:"failed"`
	AssignmentsClosed int           `json:"assignments_closed"`
	Elapsed           time.Duration `json:"elapsed"`
}

// LifecycleEngine owns submission and deadline handling for evaluation tasks
type LifecycleEngine interface {
	Open(ctx context.Context, taskID int64, actor string) (*TaskDetail, error)
	Submit(ctx context.Context, req SubmitRequest) (*TaskDetail, error)
	GetTask(ctx context.Context, taskID int64) (*TaskDetail, error)
	ListTasksForPerson(ctx context.Context, personID string, taskType entity.TaskType, asEvaluator bool) ([]TaskSummary, error)

	// Sweep applies the deadline rule to every overdue task. Per-task
	// failures are logged and counted, never returned.
	Sweep(ctx context.Context) SweepResult
}

// SweepOptions bounds one sweep pass
type SweepOptions struct {
	BatchSize   int
	Concurrency int
}

type lifecycleEngineImpl struct {
	taskRepo       port.EvaluationTaskRepository
	assignmentRepo port.AssignmentRepository
	transitionRepo port.TransitionRepository
	catalog        port.CriterionCatalog
	engine         appwf.TaskEngine
	txManager      port.TransactionManager
	clock          port.Clock
	policy         scoring.Policy
	metrics        port.MetricsRecorder
	sweepOpts      SweepOptions
	logger         Logger
}

// NewLifecycleEngine creates a new LifecycleEngine
func NewLifecycleEngine(
	taskRepo port.EvaluationTaskRepository,
	assignmentRepo port.AssignmentRepository,
	transitionRepo port.TransitionRepository,
	catalog port.CriterionCatalog,
	engine appwf.TaskEngine,
	txManager port.TransactionManager,
	clock port.Clock,
	policy scoring.Policy,
	metrics port.MetricsRecorder,
	sweepOpts SweepOptions,
	logger Logger,
) LifecycleEngine {
	if sweepOpts.BatchSize <= 0 {
		sweepOpts.BatchSize = 200
	}
	if sweepOpts.Concurrency <= 0 {
		sweepOpts.Concurrency = 4
	}
	return &lifecycleEngineImpl{
		taskRepo:       taskRepo,
		assignmentRepo: assignmentRepo,
		transitionRepo: transitionRepo,
		catalog:        catalog,
		engine:         engine,
		txManager:      txManager,
		clock:          clock,
		policy:         policy,
		metrics:        metrics,
		sweepOpts:      sweepOpts,
		logger:         logger,
	}
}

// Open moves a PENDING task to ACTIVE the first time its evaluator opens it.
// Opening an ACTIVE task again is a no-op.
func (s *lifecycleEngineImpl) Open(ctx context.Context, taskID int64, actor string) (*TaskDetail, error) {
	return s.mutate(ctx, taskID, func(txCtx context.Context, task *entity.EvaluationTask, _ []entity.Criterion) ([]*appwf.Change, error) {
		if task.EvaluatorID != actor {
			return nil, fmt.Errorf("%w: %s is not the evaluator of task %d", entity.ErrNotPermitted, actor, task.ID)
		}
		if task.Status == domainwf.StateActive {
			return nil, nil
		}

		change, err := s.engine.Apply(txCtx, task, domainwf.TriggerOpen, actor, false)
		if err != nil {
			return nil, err
		}
		return []*appwf.Change{change}, nil
	})
}

// Submit replaces the task's marks, recomputes the score and optionally
// finalizes it
func (s *lifecycleEngineImpl) Submit(ctx context.Context, req SubmitRequest) (*TaskDetail, error) {
	return s.mutate(ctx, req.TaskID, func(txCtx context.Context, task *entity.EvaluationTask, criteria []entity.Criterion) ([]*appwf.Change, error) {
		if task.EvaluatorID != req.Actor {
			return nil, fmt.Errorf("%w: %s is not the evaluator of task %d", entity.ErrNotPermitted, req.Actor, task.ID)
		}

		details, err := buildDetails(task.ID, criteria, req.Details)
		if err != nil {
			return nil, err
		}

		marks := make([]float64, len(details))
		for i, d := range details {
			marks[i] = d.Points
		}
		score := s.policy.Normalize(marks)

		if err := s.taskRepo.ReplaceDetails(txCtx, task.ID, details); err != nil {
			return nil, fmt.Errorf("replace score details: %w", err)
		}
		task.Details = details
		task.Score = &score
		task.Comment = req.Comment

		var changes []*appwf.Change
		change, err := s.engine.Apply(txCtx, task, domainwf.TriggerSubmit, req.Actor, true)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)

		if req.Finalize {
			change, err := s.engine.Apply(txCtx, task, domainwf.TriggerFinalize, req.Actor, true)
			if err != nil {
				return nil, err
			}
			changes = append(changes, change)
		}

		s.logger.Info("Task submitted",
			"task_id", task.ID,
			"score", score,
			"finalize", req.Finalize)
		return changes, nil
	})
}

type mutation func(txCtx context.Context, task *entity.EvaluationTask, criteria []entity.Criterion) ([]*appwf.Change, error)

// mutate runs fn against a freshly loaded task inside one transaction. The
// deadline rule is applied first; when it fires the transition is committed,
// its hooks run, and the caller gets ErrDeadlinePassed.
func (s *lifecycleEngineImpl) mutate(ctx context.Context, taskID int64, fn mutation) (*TaskDetail, error) {
	var changes []*appwf.Change
	var task *entity.EvaluationTask
	deadlineHit := false

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		task, err = loadTask(txCtx, s.taskRepo, taskID)
		if err != nil {
			return err
		}

		criteria, err := s.catalog.GetCriteria(txCtx, task.TaskType)
		if err != nil {
			return fmt.Errorf("get criteria: %w", err)
		}

		change, err := s.resolveDeadline(txCtx, task, criteria)
		if err != nil {
			return err
		}
		if change != nil {
			changes = append(changes, change)
			deadlineHit = true
			return nil
		}

		if task.Status.IsTerminal() {
			return fmt.Errorf("%w: task %d is %s", entity.ErrIllegalTransition, task.ID, task.Status)
		}

		applied, err := fn(txCtx, task, criteria)
		if err != nil {
			return err
		}
		changes = append(changes, applied...)
		return nil
	})

	// Only reached with changes when the transaction committed
	if err == nil {
		s.engine.Publish(ctx, changes...)
	}

	if err != nil {
		return nil, err
	}
	if deadlineHit {
		s.logger.Info("Mutation rejected after deadline",
			"task_id", taskID,
			"status", task.Status.String())
		return nil, fmt.Errorf("%w: task %d", entity.ErrDeadlinePassed, taskID)
	}

	return s.describe(ctx, task)
}

// resolveDeadline applies ResolveStatus and persists the resulting
// transition, if any
func (s *lifecycleEngineImpl) resolveDeadline(ctx context.Context, task *entity.EvaluationTask, criteria []entity.Criterion) (*appwf.Change, error) {
	usable := hasUsableScore(task, criteria)
	target, trigger := domainwf.ResolveStatus(task.Status, task.Deadline, usable, s.clock.Now())
	if trigger == "" || target == task.Status {
		return nil, nil
	}

	return s.engine.Apply(ctx, task, trigger, entity.ActorSystem, usable)
}

// GetTask returns the task after settling its deadline
func (s *lifecycleEngineImpl) GetTask(ctx context.Context, taskID int64) (*TaskDetail, error) {
	task, _, err := s.settle(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, task)
}

// ListTasksForPerson lists tasks with their effective status. Nothing is written.
func (s *lifecycleEngineImpl) ListTasksForPerson(ctx context.Context, personID string, taskType entity.TaskType, asEvaluator bool) ([]TaskSummary, error) {
	if taskType != "" && !taskType.IsValid() {
		return nil, fmt.Errorf("%w: unknown task type %q", entity.ErrNotFound, taskType)
	}

	tasks, err := s.taskRepo.ListForPerson(ctx, port.TaskFilter{
		PersonID:    personID,
		TaskType:    taskType,
		AsEvaluator: asEvaluator,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := s.clock.Now()
	summaries := make([]TaskSummary, 0, len(tasks))
	for _, task := range tasks {
		// Listing omits details, so any scored task counts as usable here
		status, _ := domainwf.ResolveStatus(task.Status, task.Deadline, task.Score != nil, now)
		summaries = append(summaries, TaskSummary{
			ID:           task.ID,
			AssignmentID: task.AssignmentID,
			TaskType:     task.TaskType,
			EvaluatorID:  task.EvaluatorID,
			SubjectID:    task.SubjectID,
			Status:       status,
			Score:        task.Score,
			Passing:      s.passing(status, task.Score),
			Deadline:     task.Deadline,
		})
	}

	return summaries, nil
}

// settle applies the deadline rule to one task in its own transaction and
// publishes the transition after commit
func (s *lifecycleEngineImpl) settle(ctx context.Context, taskID int64) (*entity.EvaluationTask, bool, error) {
	var task *entity.EvaluationTask
	var change *appwf.Change

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		task, err = loadTask(txCtx, s.taskRepo, taskID)
		if err != nil {
			return err
		}

		if task.Status.IsTerminal() || !s.clock.Now().After(task.Deadline) {
			return nil
		}

		criteria, err := s.catalog.GetCriteria(txCtx, task.TaskType)
		if err != nil {
			return fmt.Errorf("get criteria: %w", err)
		}

		change, err = s.resolveDeadline(txCtx, task, criteria)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if change != nil {
		s.engine.Publish(ctx, change)
	}
	return task, change != nil, nil
}

// Sweep resolves every overdue task, then closes assignments with no open task
func (s *lifecycleEngineImpl) Sweep(ctx context.Context) SweepResult {
	started := s.clock.Now()
	var result SweepResult
	var mu sync.Mutex

	touched := make(map[int64]bool)
	var cursor port.OverdueCursor

	for ctx.Err() == nil {
		batch, err := s.taskRepo.ListOverdue(ctx, s.clock.Now(), cursor, s.sweepOpts.BatchSize)
		if err != nil {
			s.logger.Error("Sweep failed to list overdue tasks", "error", err)
			break
		}
		if len(batch) == 0 {
			break
		}

		// Failed tasks stay overdue; the cursor moves past them so the
		// next page never repeats them
		last := batch[len(batch)-1]
		cursor = port.OverdueCursor{Deadline: last.Deadline, ID: last.ID}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.sweepOpts.Concurrency)

		for _, task := range batch {
			task := task
			g.Go(func() error {
				_, fired, err := s.settle(gctx, task.ID)

				mu.Lock()
				defer mu.Unlock()
				result.Scanned++
				touched[task.AssignmentID] = true
				if err != nil {
					result.Failed++
					s.logger.Error("Sweep failed to settle task",
						"task_id", task.ID,
						"error", err)
					return nil
				}
				if fired {
					result.Transitioned++
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(batch) < s.sweepOpts.BatchSize {
			break
		}
	}

	for assignmentID := range touched {
		closed, err := s.closeIfFinished(ctx, assignmentID)
		if err != nil {
			s.logger.Error("Sweep failed to close assignment",
				"assignment_id", assignmentID,
				"error", err)
			continue
		}
		if closed {
			result.AssignmentsClosed++
		}
	}

	result.Elapsed = s.clock.Now().Sub(started)
	s.metrics.SweepFinished(result.Transitioned, result.Failed, result.Elapsed)

	if result.Scanned > 0 {
		s.logger.Info("Deadline sweep finished",
			"scanned", result.Scanned,
			"transitioned", result.Transitioned,
			"failed", result.Failed,
			"assignments_closed", result.AssignmentsClosed)
	}
	return result
}

// closeIfFinished flips an OPEN assignment to CLOSED once all its tasks are terminal
func (s *lifecycleEngineImpl) closeIfFinished(ctx context.Context, assignmentID int64) (bool, error) {
	closed := false
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		a, err := s.assignmentRepo.GetByID(txCtx, assignmentID)
		if err != nil {
			return fmt.Errorf("get assignment: %w", err)
		}
		if a == nil || a.IsDeleted() || a.Status != entity.AssignmentStatusOpen {
			return nil
		}

		counts, err := s.taskRepo.CountByAssignment(txCtx, assignmentID)
		if err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		for _, c := range counts {
			if !c.Status.IsTerminal() && c.Count > 0 {
				return nil
			}
		}

		if err := s.assignmentRepo.UpdateStatus(txCtx, assignmentID, entity.AssignmentStatusClosed); err != nil {
			return err
		}
		closed = true
		return nil
	})
	return closed, err
}

func (s *lifecycleEngineImpl) describe(ctx context.Context, task *entity.EvaluationTask) (*TaskDetail, error) {
	criteria, err := s.catalog.GetCriteria(ctx, task.TaskType)
	if err != nil {
		return nil, fmt.Errorf("get criteria: %w", err)
	}

	transitions, err := s.transitionRepo.GetByTaskID(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("get transitions: %w", err)
	}

	actions := s.engine.PermittedTriggers(ctx, task, hasUsableScore(task, criteria))
	// Deadline triggers are the sweep's business
	visible := make([]domainwf.Trigger, 0, len(actions))
	for _, a := range actions {
		switch a {
		case domainwf.TriggerOpen, domainwf.TriggerSubmit, domainwf.TriggerFinalize:
			visible = append(visible, a)
		}
	}

	return &TaskDetail{
		Task:        task,
		Deadline:    task.Deadline,
		Passing:     s.passing(task.Status, task.Score),
		Actions:     visible,
		Transitions: transitions,
	}, nil
}

// passing is only defined for completed tasks
func (s *lifecycleEngineImpl) passing(status domainwf.State, score *float64) *bool {
	if status != domainwf.StateCompleted || score == nil {
		return nil
	}
	p := s.policy.Passing(*score)
	return &p
}

// hasUsableScore reports whether the task has a score and a mark for every
// catalog sub-criterion
func hasUsableScore(task *entity.EvaluationTask, criteria []entity.Criterion) bool {
	if task.Score == nil {
		return false
	}

	scored := make(map[int64]bool, len(task.Details))
	for _, d := range task.Details {
		scored[d.SubCriterionID] = true
	}
	for _, c := range criteria {
		for _, sc := range c.SubCriteria {
			if !scored[sc.ID] {
				return false
			}
		}
	}
	return true
}

// buildDetails checks a submission against the catalog: every sub-criterion
// exactly once, no unknown ids, marks in {0, 0.5, 1}. Details come back in
// catalog order.
func buildDetails(taskID int64, criteria []entity.Criterion, marks []MarkInput) ([]entity.ScoreDetail, error) {
	position := make(map[int64]int)
	for _, c := range criteria {
		for _, sc := range c.SubCriteria {
			position[sc.ID] = len(position)
		}
	}
	if len(position) == 0 {
		return nil, fmt.Errorf("%w: no criteria configured", entity.ErrIncompleteScoring)
	}

	details := make([]entity.ScoreDetail, len(position))
	filled := make([]bool, len(position))
	for _, m := range marks {
		pos, ok := position[m.SubCriterionID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sub-criterion %d", entity.ErrIncompleteScoring, m.SubCriterionID)
		}
		if filled[pos] {
			return nil, fmt.Errorf("%w: sub-criterion %d rated twice", entity.ErrIncompleteScoring, m.SubCriterionID)
		}
		if !scoring.ValidMark(m.Points) {
			return nil, fmt.Errorf("%w: mark %v is not 0, 0.5 or 1", entity.ErrIncompleteScoring, m.Points)
		}
		filled[pos] = true
		details[pos] = entity.ScoreDetail{
			TaskID:         taskID,
			SubCriterionID: m.SubCriterionID,
			Points:         m.Points,
			Position:       pos,
		}
	}

	for _, ok := range filled {
		if !ok {
			return nil, fmt.Errorf("%w: %d of %d items rated", entity.ErrIncompleteScoring, len(marks), len(position))
		}
	}
	return details, nil
}
