package queue

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// NewQueue selects the queue implementation named by queue.type.
func NewQueue(lc fx.Lifecycle, cfg *config.Config) Queue {
	qc := cfg.RecordHub.Queue
	var q Queue
	switch qc.Type {
	case "redis":
		q = NewRedisQueue(qc)
		logger.Infof("Using Redis activation queue %s at %s.", qc.Redis.Key, qc.Redis.Addr)
	default:
		q = NewMemoryQueue(qc.Buffer, time.Duration(qc.BlockSeconds)*time.Second)
		logger.Infof("Using in-memory activation queue.")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return q.Close() },
	})
	return q
}

// Module provides the activation queue.
var Module = fx.Options(
	fx.Provide(NewQueue),
)
