package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// KafkaPublisher produces events to one topic, keyed by task id so a task's events stay ordered.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string, opts ...kgo.Opt) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher needs at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher needs a topic")
	}
	opts = append([]kgo.Opt{kgo.SeedBrokers(brokers...), kgo.DefaultProduceTopic(topic)}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	logger.Infof("Publishing events to Kafka topic %s via %v.", topic, brokers)
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) record(e Event) (*kgo.Record, error) {
	value, err := e.encode()
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatUint(uint64(e.TaskID), 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	rec, err := p.record(e)
	if err != nil {
		return exception.NewBatchError("events", "failed to encode event "+e.Type, err, false)
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return exception.NewBatchError("events", fmt.Sprintf("failed to publish %s for task %d", e.Type, e.TaskID), err, true)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

var _ Publisher = (*KafkaPublisher)(nil)
