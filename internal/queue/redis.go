package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// RedisQueue keeps messages in a Redis list: LPUSH to enqueue, BRPOP to dequeue.
// Dead letters go to a second list.
type RedisQueue struct {
	client  *redis.Client
	key     string
	deadKey string
	block   time.Duration
}

// NewRedisQueue connects lazily to the configured Redis; the first command opens the connection.
func NewRedisQueue(cfg config.QueueConfig) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return NewRedisQueueWithClient(client, cfg)
}

// NewRedisQueueWithClient uses an existing client.
func NewRedisQueueWithClient(client *redis.Client, cfg config.QueueConfig) *RedisQueue {
	block := time.Duration(cfg.BlockSeconds) * time.Second
	if block <= 0 {
		block = 5 * time.Second
	}
	deadKey := cfg.Redis.DeadLetterKey
	if deadKey == "" {
		deadKey = cfg.Redis.Key + ":dead"
	}
	return &RedisQueue{client: client, key: cfg.Redis.Key, deadKey: deadKey, block: block}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	data, err := encode(msg)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode message", err, false)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to enqueue task %d", msg.TaskID), err, true)
	}
	logger.Debugf("Queued task %d on %s.", msg.TaskID, q.key)
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Message, error) {
	result, err := q.client.BRPop(ctx, q.block, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, exception.NewBatchError(moduleName, "failed to dequeue from "+q.key, err, true)
	}
	if len(result) < 2 {
		return nil, nil
	}
	msg, err := decode([]byte(result[1]))
	if err != nil {
		logger.Errorf("Dropping %v", err)
		if dlqErr := q.client.LPush(ctx, q.deadKey, result[1]).Err(); dlqErr != nil {
			logger.Errorf("Failed to move malformed message to %s: %v", q.deadKey, dlqErr)
		}
		return nil, nil
	}
	return msg, nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, msg Message, cause error) error {
	if cause != nil {
		msg.Error = cause.Error()
	}
	data, err := encode(msg)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode message", err, false)
	}
	if err := q.client.LPush(ctx, q.deadKey, data).Err(); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to dead-letter task %d", msg.TaskID), err, true)
	}
	logger.Warnf("Task %d moved to %s after %d attempt(s): %s", msg.TaskID, q.deadKey, msg.Attempt, msg.Error)
	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)
