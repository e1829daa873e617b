package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/acceptance-service/internal/model"
)

// RedisPubSub is the subset of *redis.Client used here.
type RedisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes accepted jobs on the EVENT_JOB_ACCEPTED channel.
type RedisPublisher struct {
	rdb RedisPubSub
}

// NewRedisPublisher wraps rdb.
func NewRedisPublisher(rdb RedisPubSub) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishAccepted publishes one event.
func (p *RedisPublisher) PublishAccepted(ctx context.Context, job model.AcceptedJob) error {
	payload, err := encode(job)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, TypeJobAccepted, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", TypeJobAccepted, err)
	}
	return nil
}
