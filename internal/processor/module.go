package processor

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/invite"
	"github.com/tigerroll/recordhub/internal/reconcile"
)

// Module provides the Processor, the Activator and the background workers.
// The workers only run when Background is invoked (the serve command).
var Module = fx.Options(
	fx.Provide(reconcile.NewEngine),
	fx.Provide(func(iv *invite.Inviter) Inviter { return iv }),
	fx.Provide(NewProcessor),
	fx.Provide(NewActivator),
	fx.Provide(func(cfg *config.Config) RetryPolicy {
		return NewRetryPolicy(cfg.RecordHub.Queue.MaxAttempts, time.Duration(cfg.RecordHub.Queue.BlockSeconds)*time.Second)
	}),
	fx.Provide(func(p *Processor) TaskRunner { return p }),
	fx.Provide(func(p *Processor) BatchRunner { return p }),
	fx.Provide(NewConsumer),
	fx.Provide(func(cfg *config.Config, r BatchRunner) *Scheduler {
		pc := cfg.RecordHub.Processor
		return NewScheduler(r, time.Duration(pc.IntervalSeconds)*time.Second, pc.RowBudget)
	}),
)

// Background starts the scheduler and the queue consumer with the application and stops them with it.
var Background = fx.Invoke(func(lc fx.Lifecycle, s *Scheduler, c *Consumer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start(context.Background())
			c.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			c.Stop()
			s.Stop()
			return nil
		},
	})
})
