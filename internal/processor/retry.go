package processor

import (
	"time"

	"github.com/tigerroll/recordhub/internal/support/exception"
)

// RetryPolicy decides whether a failed queue message is delivered again.
type RetryPolicy interface {
	ShouldRetry(err error) bool
	// Backoff is the pause before delivery number attempt+1.
	Backoff(attempt int) time.Duration
	MaxAttempts() int
}

// defaultRetryPolicy retries retryable BatchErrors and transient network errors with linear backoff.
type defaultRetryPolicy struct {
	maxAttempts int
	interval    time.Duration
}

func NewRetryPolicy(maxAttempts int, interval time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{maxAttempts: maxAttempts, interval: interval}
}

func (p *defaultRetryPolicy) MaxAttempts() int { return p.maxAttempts }

func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	return exception.IsTemporary(err)
}

func (p *defaultRetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.interval
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)
