package service

import (
	"context"
	"fmt"
	"math"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// TypeStats is the per task type slice of ProgressStats
type TypeStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// ProgressStats summarizes an assignment's task set. Pending counts every
// non-terminal task; Active is the opened subset of Pending.
type ProgressStats struct {
	AssignmentID    int64                         `json:"assignment_id"`
	Total           int                           `json:"total"`
	Completed       int                           `json:"completed"`
	Pending         int                           `json:"pending"`
	Active          int                           `json:"active"`
	Expired         int                           `json:"expired"`
	Cancelled       int                           `json:"cancelled"`
	ByType          map[entity.TaskType]TypeStats `json:"by_type"`
	ProgressPercent int                           `json:"progress_percent"`
}

// ProgressAggregator computes completion statistics
type ProgressAggregator interface {
	Stats(ctx context.Context, assignmentID int64) (*ProgressStats, error)
}

type progressAggregatorImpl struct {
	assignmentRepo port.AssignmentRepository
	taskRepo       port.EvaluationTaskRepository
}

// NewProgressAggregator creates a new ProgressAggregator
func NewProgressAggregator(assignmentRepo port.AssignmentRepository, taskRepo port.EvaluationTaskRepository) ProgressAggregator {
	return &progressAggregatorImpl{
		assignmentRepo: assignmentRepo,
		taskRepo:       taskRepo,
	}
}

// Stats counts tasks by status and type. It never writes.
func (p *progressAggregatorImpl) Stats(ctx context.Context, assignmentID int64) (*ProgressStats, error) {
	a, err := p.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: assignment %d", entity.ErrNotFound, assignmentID)
	}

	counts, err := p.taskRepo.CountByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	return aggregate(assignmentID, counts), nil
}

func aggregate(assignmentID int64, counts []port.TaskCount) *ProgressStats {
	stats := &ProgressStats{
		AssignmentID: assignmentID,
		ByType:       make(map[entity.TaskType]TypeStats),
	}

	for _, c := range counts {
		ts := stats.ByType[c.TaskType]
		ts.Total += c.Count
		stats.Total += c.Count

		switch c.Status {
		case domainwf.StateCompleted:
			stats.Completed += c.Count
			ts.Completed += c.Count
		case domainwf.StatePending:
			stats.Pending += c.Count
			ts.Pending += c.Count
		case domainwf.StateActive:
			stats.Pending += c.Count
			stats.Active += c.Count
			ts.Pending += c.Count
		case domainwf.StateExpired:
			stats.Expired += c.Count
		case domainwf.StateCancelled:
			stats.Cancelled += c.Count
		}

		stats.ByType[c.TaskType] = ts
	}

	stats.ProgressPercent = percent(stats.Completed, stats.Total)
	return stats
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
