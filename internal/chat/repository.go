package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/apperror"
)

// Repository defines the data access contract for topics and the message
// log. The log is append-only: no update or delete exists by design.
type Repository interface {
	CreateTopic(ctx context.Context, userID string) (*Topic, error)
	FindTopic(ctx context.Context, topicID string) (*Topic, error)
	AppendMessage(ctx context.Context, topicID, userID, role, content string) (*Message, error)
	ListMessages(ctx context.Context, topicID string) ([]Message, error)
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a chat repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// CreateTopic inserts a new topic owned by the given user.
func (r *repository) CreateTopic(ctx context.Context, userID string) (*Topic, error) {
	topic := &Topic{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO chat_topics (id, user_id, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, topic.ID, topic.UserID, topic.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting topic: %w", err)
	}

	return topic, nil
}

// FindTopic retrieves a topic by ID.
// Returns apperror.NotFound if no topic exists with this ID.
func (r *repository) FindTopic(ctx context.Context, topicID string) (*Topic, error) {
	query := `SELECT id, user_id, created_at FROM chat_topics WHERE id = ?`

	topic := &Topic{}
	err := r.db.QueryRowContext(ctx, query, topicID).Scan(
		&topic.ID,
		&topic.UserID,
		&topic.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("chat topic not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying topic: %w", err)
	}

	return topic, nil
}

// AppendMessage adds one message to a topic's durable log.
func (r *repository) AppendMessage(ctx context.Context, topicID, userID, role, content string) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		TopicID:   topicID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO chat_messages (id, topic_id, user_id, role, content, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.TopicID,
		msg.UserID,
		msg.Role,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	return msg, nil
}

// ListMessages returns a topic's full log ordered by creation time
// ascending. The id tiebreaker keeps the order stable for messages created
// within the same timestamp granularity.
func (r *repository) ListMessages(ctx context.Context, topicID string) ([]Message, error) {
	query := `SELECT id, topic_id, user_id, role, content, created_at
	          FROM chat_messages WHERE topic_id = ?
	          ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TopicID,
			&msg.UserID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}
