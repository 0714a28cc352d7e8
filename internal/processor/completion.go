package processor

import (
	"context"
	"errors"

	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/notification"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// complete marks the task completed once no record is pending and then notifies its creator.
// Only the call that sets completed_at notifies, so the creator hears about a task once.
func (p *Processor) complete(ctx context.Context, taskID uint) (bool, error) {
	done, err := p.store.MarkCompletedIfDone(ctx, taskID)
	if err != nil || !done {
		return false, err
	}
	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		return true, err
	}
	c := notification.Completion{Task: *task}
	if task.CreatedBy != 0 {
		creator, err := p.store.GetUser(ctx, task.CreatedBy)
		switch {
		case err == nil:
			c.Creator = creator
		case !errors.Is(err, store.ErrNotFound):
			logger.Warnf("Failed to look up creator of task %d: %v", taskID, err)
		}
	}
	if c.ErrorFraction, err = p.store.ErrorFraction(ctx, taskID); err != nil {
		logger.Warnf("Failed to compute error fraction of task %d: %v", taskID, err)
	}

	logger.Infof("Task %d (%s) completed.", taskID, task.Filename)
	if err := p.notifier.NotifyTaskCompleted(ctx, c); err != nil {
		logger.Errorf("Failed to notify completion of task %d: %v", taskID, err)
	}
	p.recorder.RecordTaskCompleted(ctx, string(task.Kind))
	p.publish(ctx, events.Event{
		Type:   events.TaskCompleted,
		TaskID: taskID,
		OrgID:  task.OrgID,
		Kind:   string(task.Kind),
		Data:   map[string]interface{}{"record_count": task.RecordCount, "error_fraction": c.ErrorFraction},
	})
	return true, nil
}
