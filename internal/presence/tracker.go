package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// onlineTTL bounds how stale a presence entry can get if a process
// dies without unregistering; the hub refreshes well inside it.
const onlineTTL = 2 * time.Minute

// Tracker keeps online/offline status in Redis, keyed per user.
type Tracker struct {
	client *redis.Client
}

func NewTracker(addr string) *Tracker {
	return &Tracker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func key(userID uuid.UUID) string {
	return "presence:" + userID.String()
}

func (t *Tracker) SetOnline(ctx context.Context, userID uuid.UUID) error {
	return t.client.Set(ctx, key(userID), "online", onlineTTL).Err()
}

func (t *Tracker) SetOffline(ctx context.Context, userID uuid.UUID) error {
	return t.client.Del(ctx, key(userID)).Err()
}

// Status returns "online" or "offline". Lookup failures degrade to
// "offline" rather than failing the caller.
func (t *Tracker) Status(ctx context.Context, userID uuid.UUID) string {
	val, err := t.client.Get(ctx, key(userID)).Result()
	if err != nil || val == "" {
		return "offline"
	}
	return val
}

func (t *Tracker) Close() error {
	return t.client.Close()
}
