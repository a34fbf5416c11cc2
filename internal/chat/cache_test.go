package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRecentCache(t *testing.T) (*miniredis.Miniredis, *RecentCache) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return mr, NewRecentCache(client, 10)
}

func testMessage(i int) *Message {
	return &Message{
		ID:        fmt.Sprintf("m-%d", i),
		TopicID:   "t1",
		UserID:    "u1",
		Role:      RoleUser,
		Content:   fmt.Sprintf("message %d", i),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestRecentCache_EmptyWindow(t *testing.T) {
	_, rc := setupRecentCache(t)

	messages, err := rc.Read(context.Background(), "u1", "t1")
	if err != nil {
		t.Fatalf("Read on untouched key failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty window, got %d messages", len(messages))
	}
}

func TestRecentCache_RoundTrip(t *testing.T) {
	_, rc := setupRecentCache(t)
	ctx := context.Background()

	msg := testMessage(1)
	if err := rc.Append(ctx, "u1", "t1", msg); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	messages, err := rc.Read(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	got := messages[0]
	if got.ID != msg.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, msg.ID)
	}
	if got.Role != msg.Role {
		t.Errorf("Role mismatch: got %s, want %s", got.Role, msg.Role)
	}
	if got.Content != msg.Content {
		t.Errorf("Content mismatch: got %s, want %s", got.Content, msg.Content)
	}
	if got.TopicID != msg.TopicID || got.UserID != msg.UserID {
		t.Errorf("identifier mismatch: got %+v, want %+v", got, msg)
	}
	if !got.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, msg.CreatedAt)
	}
}

func TestRecentCache_WindowBoundAndOrder(t *testing.T) {
	_, rc := setupRecentCache(t)
	ctx := context.Background()

	// Push 12; the window must hold exactly the last 10, newest first.
	for i := 1; i <= 12; i++ {
		if err := rc.Append(ctx, "u1", "t1", testMessage(i)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	messages, err := rc.Read(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 10 {
		t.Fatalf("expected window of 10, got %d", len(messages))
	}

	for i, msg := range messages {
		want := fmt.Sprintf("m-%d", 12-i)
		if msg.ID != want {
			t.Errorf("position %d: got %s, want %s", i, msg.ID, want)
		}
	}
}

func TestRecentCache_SelfHealsOverLengthList(t *testing.T) {
	mr, rc := setupRecentCache(t)
	ctx := context.Background()

	// Simulate a crash between push and trim: seed 14 raw entries.
	key := recentKeyPrefix + "u1:t1"
	for i := 1; i <= 14; i++ {
		mr.Lpush(key, fmt.Sprintf(`{"messageId":"m-%d"}`, i))
	}

	// The next append trims the whole list back to the window.
	if err := rc.Append(ctx, "u1", "t1", testMessage(15)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := mr.List(key)
	if err != nil {
		t.Fatalf("reading raw list: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("expected list trimmed to 10, got %d", len(entries))
	}
}

func TestRecentCache_KeysAreNamespacedPerUserAndTopic(t *testing.T) {
	_, rc := setupRecentCache(t)
	ctx := context.Background()

	if err := rc.Append(ctx, "u1", "t1", testMessage(1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	for _, pair := range [][2]string{{"u1", "t2"}, {"u2", "t1"}} {
		messages, err := rc.Read(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(messages) != 0 {
			t.Errorf("window for %s/%s should be empty, got %d entries", pair[0], pair[1], len(messages))
		}
	}
}

func TestRecentCache_SkipsCorruptEntries(t *testing.T) {
	mr, rc := setupRecentCache(t)
	ctx := context.Background()

	if err := rc.Append(ctx, "u1", "t1", testMessage(1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	mr.Lpush(recentKeyPrefix+"u1:t1", "{not json")

	messages, err := rc.Read(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected corrupt entry skipped, got %d messages", len(messages))
	}
	if messages[0].ID != "m-1" {
		t.Errorf("expected m-1, got %s", messages[0].ID)
	}
}
