package processor

import (
	"context"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/events"
	"github.com/tigerroll/recordhub/internal/queue"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Activator selects records for processing and hands their task to the queue.
type Activator struct {
	store     store.Store
	queue     queue.Queue
	publisher events.Publisher
}

func NewActivator(s store.Store, q queue.Queue, pub events.Publisher) *Activator {
	return &Activator{store: s, queue: q, publisher: pub}
}

// Activate flags every unprocessed record of the task. When any record was flagged the task is
// enqueued for its first processing run.
func (a *Activator) Activate(ctx context.Context, actor model.Actor, taskID uint) (int64, error) {
	n, err := a.store.ActivateTask(ctx, actor, taskID)
	if err != nil {
		return 0, err
	}
	return n, a.handOff(ctx, taskID, n, "activated")
}

// Reactivate restarts the lifecycle of the given records, or of every record of the task.
func (a *Activator) Reactivate(ctx context.Context, actor model.Actor, taskID uint, recordIDs ...uint) (int64, error) {
	n, err := a.store.ReactivateRecords(ctx, actor, taskID, recordIDs...)
	if err != nil {
		return 0, err
	}
	return n, a.handOff(ctx, taskID, n, "reactivated")
}

// Dispatch queues a task whose records were loaded already active.
func (a *Activator) Dispatch(ctx context.Context, taskID uint, active int64) error {
	return a.handOff(ctx, taskID, active, "loaded")
}

func (a *Activator) handOff(ctx context.Context, taskID uint, n int64, verb string) error {
	if n == 0 {
		logger.Infof("Task %d: nothing to process.", taskID)
		return nil
	}
	if err := a.queue.Enqueue(ctx, queue.Message{TaskID: taskID}); err != nil {
		return err
	}
	logger.Infof("Task %d: %s %d record(s) and queued it for processing.", taskID, verb, n)

	task, err := a.store.GetTask(ctx, taskID)
	if err != nil {
		logger.Warnf("Task %d: failed to reload after activation: %v", taskID, err)
		return nil
	}
	e := events.Event{
		Type:   events.TaskActivated,
		TaskID: taskID,
		OrgID:  task.OrgID,
		Kind:   string(task.Kind),
		Data:   map[string]interface{}{"records": n},
	}
	if err := a.publisher.Publish(ctx, e); err != nil {
		logger.Warnf("Failed to publish %s event for task %d: %v", e.Type, taskID, err)
	}
	return nil
}
