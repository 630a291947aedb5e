package workflow

import (
	"context"
	"time"

	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// TaskEngine moves evaluation tasks through their state machine
type TaskEngine interface {
	// Apply fires trigger on task, then persists the task and an audit row.
	// It joins the transaction carried by ctx when there is one. Nothing is
	// published; hand the returned change to Publish after commit.
	Apply(ctx context.Context, task *entity.EvaluationTask, trigger domainwf.Trigger, actor string, hasUsableScore bool) (*Change, error)

	// Publish emits status-changed events and runs the post-transition hooks
	// of changes that reached a terminal state
	Publish(ctx context.Context, changes ...*Change)

	// PermittedTriggers lists the triggers whose guards pass for task right now
	PermittedTriggers(ctx context.Context, task *entity.EvaluationTask, hasUsableScore bool) []domainwf.Trigger
}

// Change describes one committed-or-pending task transition
type Change struct {
	Task     *entity.EvaluationTask
	Previous domainwf.State
	Current  domainwf.State
	Trigger  domainwf.Trigger
	Actor    string
	At       time.Time
}

// Terminal reports whether the change closed the task
func (c *Change) Terminal() bool {
	return c.Current.IsTerminal()
}
