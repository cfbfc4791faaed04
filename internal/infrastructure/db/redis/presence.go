package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceTTL is three liveness intervals: a key that is not refreshed by
// its session's liveness tick expires on its own.
const presenceTTL = 15 * time.Second

// PresenceTracker records which accounts currently hold a live session.
// Key format: presence:<username>
type PresenceTracker struct {
	client *redis.Client
}

// NewPresenceTracker creates a PresenceTracker wrapping the given client.
func NewPresenceTracker(client *redis.Client) *PresenceTracker {
	return &PresenceTracker{client: client}
}

// Online marks the account as holding a live session.
func (p *PresenceTracker) Online(ctx context.Context, username string) error {
	return p.client.Set(ctx, p.key(username), "1", presenceTTL).Err()
}

// Heartbeat extends the presence mark; called once per liveness tick.
func (p *PresenceTracker) Heartbeat(ctx context.Context, username string) error {
	return p.Online(ctx, username)
}

// Offline clears the presence mark at logout or session close.
func (p *PresenceTracker) Offline(ctx context.Context, username string) error {
	return p.client.Del(ctx, p.key(username)).Err()
}

// IsOnline reports whether the account currently holds a live session.
func (p *PresenceTracker) IsOnline(ctx context.Context, username string) (bool, error) {
	n, err := p.client.Exists(ctx, p.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("presence check: %w", err)
	}
	return n > 0, nil
}

func (p *PresenceTracker) key(username string) string {
	return "presence:" + username
}
