// Package queue wraps the Redis lists that carry job and reply envelopes.
// Producers push to the tail (LPUSH); the worker consumes from the head
// (BRPOP), so retries re-pushed with Push join the back of the line.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// Commands is the slice of the Redis API the queue needs. *redis.Client
// satisfies it; tests supply fakes.
type Commands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Client pushes and pops JSON envelopes on named queues.
type Client struct {
	rdb Commands
}

// New creates a queue client over the given Redis commands.
func New(rdb Commands) *Client {
	return &Client{rdb: rdb}
}

// Push serializes v and appends it to the tail of the named queue.
func (c *Client) Push(ctx context.Context, queueName string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queueName, err)
	}
	if err := c.rdb.LPush(ctx, queueName, raw).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", queueName, err)
	}
	return nil
}

// Pop blocks up to timeout for the next message at the head of the named
// queue. It returns domain.ErrNoJobAvailable when the wait times out.
func (c *Client) Pop(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BRPop(ctx, timeout, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, fmt.Errorf("pop from %s: %w", queueName, err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("pop from %s: unexpected reply of %d elements", queueName, len(res))
	}
	return []byte(res[1]), nil
}

// Len reports the number of messages waiting on the named queue.
func (c *Client) Len(ctx context.Context, queueName string) (int64, error) {
	n, err := c.rdb.LLen(ctx, queueName).Result()
	if err != nil {
		return 0, fmt.Errorf("len of %s: %w", queueName, err)
	}
	return n, nil
}
