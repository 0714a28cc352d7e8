package queue

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/recordhub/internal/support/logger"
)

// MemoryQueue is an in-process queue over a buffered channel.
type MemoryQueue struct {
	ch   chan Message
	wait time.Duration
	mu   sync.Mutex
	dead []Message
	done chan struct{}
	once sync.Once
}

// NewMemoryQueue creates a queue holding up to buffer messages. Dequeue gives up after wait.
func NewMemoryQueue(buffer int, wait time.Duration) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &MemoryQueue{ch: make(chan Message, buffer), wait: wait, done: make(chan struct{})}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	if msg.Attempt == 0 {
		msg.Attempt = 1
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- msg:
		logger.Debugf("Queued task %d (attempt %d).", msg.TaskID, msg.Attempt)
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Message, error) {
	timer := time.NewTimer(q.wait)
	defer timer.Stop()
	select {
	case msg := <-q.ch:
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) DeadLetter(_ context.Context, msg Message, cause error) error {
	if cause != nil {
		msg.Error = cause.Error()
	}
	q.mu.Lock()
	q.dead = append(q.dead, msg)
	q.mu.Unlock()
	logger.Warnf("Task %d moved to the dead-letter list after %d attempt(s): %s", msg.TaskID, msg.Attempt, msg.Error)
	return nil
}

// DeadLetters returns a copy of the dead-letter list.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Message(nil), q.dead...)
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
