package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
)

// DefaultBatchSize caps how many queued jobs one pass takes.
const DefaultBatchSize = 50

// ListClient is the subset of *redis.Client the queue needs.
type ListClient interface {
	LPopCount(ctx context.Context, key string, count int) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisQueue drains JSON-encoded jobs pushed onto a Redis list by the
// discovery side. Popped entries are gone from the list: a job that ends
// the pass without a booking is not seen again unless re-published or
// handed back through Requeue.
type RedisQueue struct {
	rdb   ListClient
	key   string
	batch int
	log   zerolog.Logger
}

// NewRedisQueue constructs a queue reader. batch <= 0 uses DefaultBatchSize.
func NewRedisQueue(rdb ListClient, key string, batch int, log zerolog.Logger) *RedisQueue {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &RedisQueue{rdb: rdb, key: key, batch: batch, log: log}
}

// FetchNewJobs pops up to one batch. An empty list is not an error.
func (q *RedisQueue) FetchNewJobs(ctx context.Context) ([]model.Job, error) {
	raw, err := q.rdb.LPopCount(ctx, q.key, q.batch).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis LPOP %s: %w", q.key, err)
	}

	jobs := make([]model.Job, 0, len(raw))
	for _, entry := range raw {
		var j model.Job
		if err := json.Unmarshal([]byte(entry), &j); err != nil {
			q.log.Warn().Err(err).Str("key", q.key).Msg("dropping malformed queue entry")
			continue
		}
		j, err := normalize(j)
		if err != nil {
			q.log.Warn().Err(err).Str("title", j.Title).Msg("dropping queue entry")
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Requeue pushes jobs back onto the head of the list so the next pass pops
// them first, jobs[0] leading.
func (q *RedisQueue) Requeue(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(jobs))
	for i := len(jobs) - 1; i >= 0; i-- {
		b, err := json.Marshal(jobs[i])
		if err != nil {
			return fmt.Errorf("encode job %s: %w", jobs[i].ID, err)
		}
		values = append(values, b)
	}
	if err := q.rdb.LPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("redis LPUSH %s: %w", q.key, err)
	}
	q.log.Info().Int("jobs", len(jobs)).Str("key", q.key).Msg("jobs requeued")
	return nil
}
