// Package presence tracks which users are currently online. Each open SPA tab
// heartbeats; a user whose key expires is offline. The data is ephemeral by
// nature, so it lives in Redis with a TTL and nothing else.
package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chantier_portal_backend/platform/config"
)

const keyPrefix = "presence:"

// Entry is one online user.
type Entry struct {
	UserID   uuid.UUID `json:"userId"`
	Role     string    `json:"role"`
	LastSeen time.Time `json:"lastSeen"`
}

// Tracker stores heartbeats in Redis.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTracker creates a tracker. TTL below one second falls back to a minute.
func NewTracker(rdb *redis.Client, cfg config.PresenceConfig) *Tracker {
	ttl := cfg.GetPresenceTTL()
	if ttl < time.Second {
		ttl = time.Minute
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

// Heartbeat marks the user online for one TTL window.
func (t *Tracker) Heartbeat(ctx context.Context, userID uuid.UUID, role string) error {
	value := fmt.Sprintf("%s|%d", role, time.Now().Unix())
	if err := t.rdb.Set(ctx, keyPrefix+userID.String(), value, t.ttl).Err(); err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

// Online returns every user with a live heartbeat.
func (t *Tracker) Online(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)

	iter := t.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		userID, err := uuid.Parse(strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			continue
		}

		value, err := t.rdb.Get(ctx, key).Result()
		if err != nil {
			// Expired between SCAN and GET.
			continue
		}

		entry := Entry{UserID: userID}
		if role, ts, ok := strings.Cut(value, "|"); ok {
			entry.Role = role
			var unix int64
			if _, err := fmt.Sscanf(ts, "%d", &unix); err == nil {
				entry.LastSeen = time.Unix(unix, 0)
			}
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence scan: %w", err)
	}

	return entries, nil
}

// Offline drops the user's heartbeat, used on logout.
func (t *Tracker) Offline(ctx context.Context, userID uuid.UUID) error {
	if err := t.rdb.Del(ctx, keyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("presence offline: %w", err)
	}
	return nil
}
