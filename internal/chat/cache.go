package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/apperror"
)

// recentKeyPrefix namespaces the recent-window list per (user, topic) pair.
// The userID segment prevents cross-user key collisions; it is NOT an
// authorization boundary. Ownership is verified by the service against the
// durable topic record before any cache access.
const recentKeyPrefix = "recent:"

// RecentCache maintains the bounded, newest-first window of a topic's most
// recent messages. It is cache-only: reads never fall back to the durable
// log, and a topic with no cached history simply reads as empty.
type RecentCache struct {
	redis  *redis.Client
	window int
}

// NewRecentCache creates a recent-window cache with the given window size.
func NewRecentCache(rdb *redis.Client, window int) *RecentCache {
	return &RecentCache{
		redis:  rdb,
		window: window,
	}
}

// Append pushes a freshly persisted message onto the front of the window,
// then trims the window back to size. The push and trim are two separate
// commands, each atomic at the store, but deliberately not wrapped in a
// transaction: a crash between them can transiently leave the list over
// length, and the next trim heals it. Boundedness is eventual, not strict.
func (rc *RecentCache) Append(ctx context.Context, userID, topicID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshaling message: %w", err))
	}

	key := rc.key(userID, topicID)
	if err := rc.redis.LPush(ctx, key, data).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("pushing recent message: %w", err))
	}
	if err := rc.redis.LTrim(ctx, key, 0, int64(rc.window-1)).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("trimming recent window: %w", err))
	}

	return nil
}

// Read returns up to window messages, newest first. A missing key is an
// empty window, never an error. Entries that fail to decode are skipped so
// one corrupt element can't take down the whole read.
func (rc *RecentCache) Read(ctx context.Context, userID, topicID string) ([]Message, error) {
	raw, err := rc.redis.LRange(ctx, rc.key(userID, topicID), 0, int64(rc.window-1)).Result()
	if err != nil {
		return nil, apperror.NewUnavailable(fmt.Errorf("reading recent window: %w", err))
	}

	messages := make([]Message, 0, len(raw))
	for _, entry := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// key builds the per-(user, topic) list key.
func (rc *RecentCache) key(userID, topicID string) string {
	return recentKeyPrefix + userID + ":" + topicID
}
