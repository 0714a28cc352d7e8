package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), Event{Type: TaskCompleted, TaskID: 1}))
}

func TestKafkaPublisher_Record(t *testing.T) {
	p, err := NewKafkaPublisher([]string{"127.0.0.1:1"}, "recordhub.events")
	require.NoError(t, err)
	defer p.Close()

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rec, err := p.record(Event{Type: TaskCompleted, TaskID: 42, OrgID: 3, Kind: "funding", At: at,
		Data: map[string]interface{}{"error_fraction": 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "recordhub.events", rec.Topic)
	assert.Equal(t, "42", string(rec.Key))
	assert.Equal(t, "type", rec.Headers[0].Key)
	assert.Equal(t, TaskCompleted, string(rec.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "task.completed", decoded["type"])
	assert.Equal(t, float64(42), decoded["task_id"])
	assert.Equal(t, "2026-10-19T12:00:00Z", decoded["at"])
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "t")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"127.0.0.1:1"}, "")
	assert.Error(t, err)
}
