// Package chat holds conversation topics, the append-only message log, and
// the bounded recent-window cache in front of it. The durable log is
// authoritative and strictly ordered by creation time; the cache serves the
// "latest N" read cheaply and is allowed to be stale or empty.
package chat

import (
	"time"
)

// Author roles form a closed set. User-authored messages come from the send
// endpoint; assistant messages are reserved for a reply generator, which is
// an extension point only -- nothing in this service produces them yet.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Topic is a conversation owned by exactly one user. Ownership is immutable
// after creation and topics are never deleted.
type Topic struct {
	ID        string    `json:"chatId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one entry in a topic's append-only log. The durable copy is
// permanent; the cached copy in the recent window is transient.
type Message struct {
	ID        string    `json:"messageId"`
	TopicID   string    `json:"chatId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// --- Request DTOs ---

// SendMessageRequest is the body of POST /chat/:topicId/message.
type SendMessageRequest struct {
	Content string `json:"content"`
}
