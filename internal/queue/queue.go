// Package queue hands activated tasks to the processor.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const moduleName = "queue"

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue closed")

// Message asks the processor to run one task. Attempt counts deliveries, starting at 1.
type Message struct {
	TaskID  uint   `json:"task_id"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error,omitempty"`
}

// Queue is a FIFO of task messages with a dead-letter list.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue waits for the next message. It returns nil and no error when the wait
	// timed out without one, so callers can re-check their context.
	Dequeue(ctx context.Context) (*Message, error)
	// DeadLetter parks a message that exhausted its attempts.
	DeadLetter(ctx context.Context, msg Message, cause error) error
	Close() error
}

func encode(msg Message) ([]byte, error) {
	if msg.Attempt == 0 {
		msg.Attempt = 1
	}
	return json.Marshal(msg)
}

func decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed queue message %q: %w", string(data), err)
	}
	if msg.TaskID == 0 {
		return nil, fmt.Errorf("queue message without task id: %q", string(data))
	}
	return &msg, nil
}
