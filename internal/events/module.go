package events

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
)

// NewPublisher selects the publisher named by events.type.
func NewPublisher(lc fx.Lifecycle, cfg *config.Config) (Publisher, error) {
	ec := cfg.RecordHub.Events
	var p Publisher = LogPublisher{}
	if ec.Type == "kafka" {
		kp, err := NewKafkaPublisher(ec.Brokers, ec.Topic)
		if err != nil {
			return nil, err
		}
		p = kp
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return p.Close() }})
	return p, nil
}

var Module = fx.Options(
	fx.Provide(NewPublisher),
)
