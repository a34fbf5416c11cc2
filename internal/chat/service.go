package chat

import (
	"context"
	"log/slog"

	"github.com/parleyhq/parley/internal/apperror"
)

// Service is the business logic for conversations. It enforces topic
// ownership against the durable topic record before every log or cache
// access -- including the cached recent-window read, where the cache key's
// user namespace alone would not be a real check.
type Service struct {
	repo   Repository
	recent *RecentCache
}

// NewService creates a chat service with the given repository and cache.
func NewService(repo Repository, recent *RecentCache) *Service {
	return &Service{
		repo:   repo,
		recent: recent,
	}
}

// StartTopic creates a new conversation topic owned by the caller.
func (s *Service) StartTopic(ctx context.Context, userID string) (*Topic, error) {
	topic, err := s.repo.CreateTopic(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("chat topic started",
		slog.String("user_id", userID),
		slog.String("topic_id", topic.ID),
	)

	return topic, nil
}

// SendMessage appends a user-authored message to the topic's durable log,
// then mirrors it into the recent window. The durable append commits first;
// if the cache push then fails, the error still surfaces so the caller can
// decide to retry -- losing the cache copy is acceptable, losing the
// durable copy is not.
func (s *Service) SendMessage(ctx context.Context, userID, topicID, content string) (*Message, error) {
	if content == "" {
		return nil, apperror.NewBadRequest("message content is required")
	}

	if err := s.authorize(ctx, userID, topicID); err != nil {
		return nil, err
	}

	msg, err := s.repo.AppendMessage(ctx, topicID, userID, RoleUser, content)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if err := s.recent.Append(ctx, userID, topicID, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// Messages returns the topic's full durable log, oldest first. This is the
// guaranteed-complete read path; the recent window is not consulted.
func (s *Service) Messages(ctx context.Context, userID, topicID string) ([]Message, error) {
	if err := s.authorize(ctx, userID, topicID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, topicID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if messages == nil {
		messages = []Message{}
	}

	return messages, nil
}

// Recent returns the cached recent window, newest first. Cache-only: an
// untouched topic reads as empty, and staleness relative to the durable log
// is accepted.
func (s *Service) Recent(ctx context.Context, userID, topicID string) ([]Message, error) {
	if err := s.authorize(ctx, userID, topicID); err != nil {
		return nil, err
	}

	return s.recent.Read(ctx, userID, topicID)
}

// authorize verifies the topic exists and the caller owns it.
func (s *Service) authorize(ctx context.Context, userID, topicID string) error {
	topic, err := s.repo.FindTopic(ctx, topicID)
	if err != nil {
		return err
	}
	if topic.UserID != userID {
		return apperror.NewForbidden("you do not have access to this chat")
	}
	return nil
}
