package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Suppressor decides whether an at-risk notification for a ticket should
// go out, so hourly risk sweeps do not re-notify the same ticket.
type Suppressor interface {
	ShouldNotify(ctx context.Context, ticketID string) (bool, error)
}

// NoopSuppressor notifies every time. Used in tests and when Redis is
// not configured.
type NoopSuppressor struct{}

func (NoopSuppressor) ShouldNotify(context.Context, string) (bool, error) {
	return true, nil
}

// RedisSuppressor deduplicates at-risk notifications with SET NX keys.
type RedisSuppressor struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSuppressor constructs a suppressor with the given dedup TTL.
func NewRedisSuppressor(client *redis.Client, ttl time.Duration) *RedisSuppressor {
	return &RedisSuppressor{client: client, ttl: ttl}
}

func (s *RedisSuppressor) ShouldNotify(ctx context.Context, ticketID string) (bool, error) {
	key := fmt.Sprintf("sla:risk-notified:%s", ticketID)
	return s.client.SetNX(ctx, key, 1, s.ttl).Result()
}
