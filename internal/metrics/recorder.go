// Package metrics records ingestion and processing metrics and sets up tracing.
package metrics

import (
	"context"
	"time"
)

// Unit outcomes.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeInvited = "invited"
	OutcomeWaiting = "waiting"
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
)

// Recorder is the metrics sink used by the loader and the processor.
type Recorder interface {
	// RecordLoad counts one load attempt of kind; err marks it failed.
	RecordLoad(ctx context.Context, kind string, records int, err error)
	// RecordUnit counts one remote write attempt by outcome.
	RecordUnit(ctx context.Context, kind, outcome string)
	RecordRun(ctx context.Context, d time.Duration, records int)
	RecordTaskCompleted(ctx context.Context, kind string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func NewNoopRecorder() Recorder { return NoopRecorder{} }

func (NoopRecorder) RecordLoad(context.Context, string, int, error) {}
func (NoopRecorder) RecordUnit(context.Context, string, string)     {}
func (NoopRecorder) RecordRun(context.Context, time.Duration, int)  {}
func (NoopRecorder) RecordTaskCompleted(context.Context, string)    {}

var _ Recorder = NoopRecorder{}

func loadStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
