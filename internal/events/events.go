// Package events publishes processing milestones for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Event types.
const (
	TaskLoaded      = "task.loaded"
	TaskActivated   = "task.activated"
	TaskCompleted   = "task.completed"
	RecordProcessed = "record.processed"
)

// Event is one milestone. Data holds type specific attributes.
type Event struct {
	Type   string                 `json:"type"`
	TaskID uint                   `json:"task_id"`
	OrgID  uint                   `json:"org_id,omitempty"`
	Kind   string                 `json:"kind,omitempty"`
	At     time.Time              `json:"at"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

func (e Event) encode() ([]byte, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return json.Marshal(e)
}

// Publisher delivers events. Publishing never blocks processing on failure;
// callers log the returned error.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	data, err := e.encode()
	if err != nil {
		return err
	}
	logger.Infof("Event %s: %s", e.Type, data)
	return nil
}

func (LogPublisher) Close() error { return nil }

var _ Publisher = LogPublisher{}
