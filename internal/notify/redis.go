// Package notify reaches the user: accepted-job notices and permission
// requests for jobs outside the home-base radius.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jobmate/acceptance-service/internal/model"
)

// Redis channels and keys used by RedisNotifier.
const (
	ChannelNotification        = "EVENT_NOTIFICATION"
	ChannelPermissionRequested = "EVENT_PERMISSION_REQUESTED"
	permissionReplyPrefix      = "permission:reply:"
)

// RedisClient is the subset of *redis.Client the notifier needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// RedisNotifier publishes notifications for the frontend and collects
// permission answers pushed onto a per-job reply list.
type RedisNotifier struct {
	rdb            RedisClient
	timeout        time.Duration
	defaultApprove bool
	log            zerolog.Logger
}

// NewRedisNotifier constructs a notifier. When no answer arrives within
// timeout, defaultApprove is returned.
func NewRedisNotifier(rdb RedisClient, timeout time.Duration, defaultApprove bool, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, timeout: timeout, defaultApprove: defaultApprove, log: log}
}

// ReplyKey is the list a permission answer for jobID is pushed onto.
func ReplyKey(jobID string) string { return permissionReplyPrefix + jobID }

// Notify publishes one notification event.
func (n *RedisNotifier) Notify(ctx context.Context, title, body string) error {
	event, _ := json.Marshal(map[string]string{
		"type":   ChannelNotification,
		"title":  title,
		"body":   body,
		"sentAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err := n.rdb.Publish(ctx, ChannelNotification, event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelNotification, err)
	}
	return nil
}

// RequestPermission publishes the question and blocks until an answer is
// pushed to ReplyKey(job.ID), the timeout passes, or ctx ends.
func (n *RedisNotifier) RequestPermission(ctx context.Context, message string, job model.Job) (bool, error) {
	replyKey := ReplyKey(job.ID)
	event, _ := json.Marshal(map[string]any{
		"type":           ChannelPermissionRequested,
		"jobId":          job.ID,
		"title":          job.Title,
		"location":       job.Location,
		"distanceKm":     job.DistanceKm,
		"message":        message,
		"replyKey":       replyKey,
		"timeoutSeconds": int(n.timeout / time.Second),
		"defaultAnswer":  n.defaultApprove,
	})
	if err := n.rdb.Publish(ctx, ChannelPermissionRequested, event).Err(); err != nil {
		return false, fmt.Errorf("publish %s: %w", ChannelPermissionRequested, err)
	}

	log := n.log.With().Str("job_id", job.ID).Logger()
	log.Info().Dur("timeout", n.timeout).Msg("permission requested")

	res, err := n.waitAnswer(ctx, replyKey)
	if errors.Is(err, redis.Nil) {
		log.Info().Bool("approved", n.defaultApprove).Msg("no permission answer, applying default")
		return n.defaultApprove, nil
	}
	if err != nil {
		return false, fmt.Errorf("wait for permission answer: %w", err)
	}
	if len(res) < 2 {
		return false, fmt.Errorf("unexpected BLPOP reply %v", res)
	}

	approved := ParseAnswer(res[1])
	log.Info().Bool("approved", approved).Str("answer", res[1]).Msg("permission answered")
	return approved, nil
}

// waitAnswer runs BLPOP but returns as soon as ctx ends, whether or not
// the client itself honours cancellation.
func (n *RedisNotifier) waitAnswer(ctx context.Context, replyKey string) ([]string, error) {
	type reply struct {
		vals []string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		vals, err := n.rdb.BLPop(ctx, n.timeout, replyKey).Result()
		done <- reply{vals, err}
	}()

	select {
	case r := <-done:
		return r.vals, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ParseAnswer maps a free-text reply to approval. Anything unrecognised
// counts as a refusal.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "ja", "ok", "true", "1", "approve", "approved", "accept":
		return true
	}
	return false
}
