package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tigerroll/recordhub/internal/queue"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// TaskRunner processes one task. *Processor satisfies it.
type TaskRunner interface {
	ProcessTask(ctx context.Context, taskID uint) (Summary, error)
}

// Consumer pulls activated task ids off the queue and processes them.
// Retryable failures are re-queued until the policy's attempts are spent, then dead-lettered.
type Consumer struct {
	queue  queue.Queue
	runner TaskRunner
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(q queue.Queue, runner TaskRunner, policy RetryPolicy) *Consumer {
	return &Consumer{queue: q, runner: runner, policy: policy, sleep: sleepCtx}
}

// Start launches the receive loop. It returns immediately.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx)
	}()
	logger.Infof("Queue consumer started.")
}

// Stop cancels the loop and waits for the message in flight.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	logger.Infof("Queue consumer stopped.")
}

func (c *Consumer) loop(ctx context.Context) {
	for ctx.Err() == nil {
		msg, err := c.queue.Dequeue(ctx)
		switch {
		case errors.Is(err, queue.ErrClosed), errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Errorf("Failed to receive from the activation queue: %v", err)
			if c.sleep(ctx, time.Second) != nil {
				return
			}
			continue
		case msg == nil:
			continue
		}
		c.Handle(ctx, *msg)
	}
}

// Handle processes one message and decides its fate on failure.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) {
	if msg.Attempt == 0 {
		msg.Attempt = 1
	}
	sum, err := c.runner.ProcessTask(ctx, msg.TaskID)
	if err == nil {
		logger.Debugf("Task %d processed from queue: %d record(s).", msg.TaskID, sum.Records)
		return
	}
	if ctx.Err() != nil {
		// Shutting down: hand the message back for the next consumer.
		if qerr := c.queue.Enqueue(context.Background(), msg); qerr != nil {
			logger.Errorf("Failed to re-queue task %d on shutdown: %v", msg.TaskID, qerr)
		}
		return
	}

	msg.Error = exception.ExtractErrorMessage(err)
	if c.policy.ShouldRetry(err) && msg.Attempt < c.policy.MaxAttempts() {
		logger.Warnf("Task %d failed on attempt %d/%d, retrying: %v", msg.TaskID, msg.Attempt, c.policy.MaxAttempts(), err)
		msg.Attempt++
		if c.sleep(ctx, c.policy.Backoff(msg.Attempt-1)) != nil {
			if qerr := c.queue.Enqueue(context.Background(), msg); qerr != nil {
				logger.Errorf("Failed to re-queue task %d on shutdown: %v", msg.TaskID, qerr)
			}
			return
		}
		if qerr := c.queue.Enqueue(ctx, msg); qerr != nil {
			logger.Errorf("Failed to re-queue task %d: %v", msg.TaskID, qerr)
		}
		return
	}
	logger.Errorf("Task %d failed after %d attempt(s), moving it to the dead-letter list: %v", msg.TaskID, msg.Attempt, err)
	if qerr := c.queue.DeadLetter(ctx, msg, err); qerr != nil {
		logger.Errorf("Failed to dead-letter task %d: %v", msg.TaskID, qerr)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
