package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Alarms implements keepalive.Alarms with an expiring heartbeat key, so
// external supervisors can tell the background process is busy.
type Alarms struct {
	client *redis.Client
	prefix string
	grace  time.Duration
}

func (a *Alarms) key(name string) string { return a.prefix + "alarm:" + name }

// Create sets the heartbeat key to expire grace after when.
func (a *Alarms) Create(ctx context.Context, name string, when time.Time) error {
	ttl := time.Until(when) + a.grace
	if ttl <= 0 {
		ttl = a.grace
	}
	return a.client.Set(ctx, a.key(name), when.UnixMilli(), ttl).Err()
}

// Clear removes the heartbeat key.
func (a *Alarms) Clear(ctx context.Context, name string) error {
	return a.client.Del(ctx, a.key(name)).Err()
}

// Scheduled returns the wake time stored under name.
func (a *Alarms) Scheduled(ctx context.Context, name string) (time.Time, bool, error) {
	millis, err := a.client.Get(ctx, a.key(name)).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis), true, nil
}

// NewAlarms creates Redis alarms; grace is how long a heartbeat outlives its wake time.
func NewAlarms(client *redis.Client, prefix string, grace time.Duration) *Alarms {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if grace <= 0 {
		grace = time.Minute
	}
	return &Alarms{client: client, prefix: prefix, grace: grace}
}
