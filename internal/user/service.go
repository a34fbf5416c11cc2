package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/apperror"
)

// profileKeyPrefix is the Redis key prefix for cached user profiles.
const profileKeyPrefix = "user-profile:"

// Service is the profile cache plus the user operations behind it. It owns
// the read-through/write-through policy; callers never touch the repository
// for anything the cache covers.
type Service struct {
	repo  Repository
	redis *redis.Client
	ttl   time.Duration
}

// NewService creates a user service with the given repository, Redis client,
// and profile cache TTL.
func NewService(repo Repository, rdb *redis.Client, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		redis: rdb,
		ttl:   ttl,
	}
}

// Get returns a user by ID, read-through. A cache hit answers without
// touching the durable store. On miss the durable record populates the
// cache before being returned; a missing user returns NotFound and is never
// cached, so a subsequent create becomes visible immediately.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	data, err := s.redis.Get(ctx, profileKeyPrefix+userID).Bytes()
	if err == nil {
		var u User
		if jsonErr := json.Unmarshal(data, &u); jsonErr == nil {
			return &u, nil
		}
		// An undecodable entry falls through to the durable read, which
		// overwrites it.
		slog.Warn("dropping corrupt profile cache entry",
			slog.String("user_id", userID),
		)
	} else if !errors.Is(err, redis.Nil) {
		return nil, apperror.NewUnavailable(fmt.Errorf("reading profile cache: %w", err))
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cacheProfile(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Create inserts a new user and primes the cache. At least one identifying
// attribute (phone, email, or provider pair) is required.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if !in.hasIdentity() {
		return nil, apperror.NewBadRequest("a phone, email, or provider identity is required")
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Phone:        in.Phone,
		Email:        in.Email,
		Provider:     in.Provider,
		ProviderID:   in.ProviderID,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.cacheProfile(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("user created", slog.String("user_id", u.ID))

	return u, nil
}

// Update applies the patch write-through: the durable store first, then an
// unconditional overwrite of the cache entry with the fresh record and a
// full TTL reset. The cache is never partially updated, so a reader in this
// process observes at most the last completed write or the durable value on
// a cold miss -- never anything older. Concurrent updates from different
// processes are last-writer-wins at both tiers.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (*User, error) {
	u, err := s.repo.Update(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.cacheProfile(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// ByPhone looks a user up by phone number, bypassing the cache.
func (s *Service) ByPhone(ctx context.Context, phone string) (*User, error) {
	return s.repo.FindByPhone(ctx, phone)
}

// ByEmail looks a user up by email address, bypassing the cache.
func (s *Service) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// ByProvider looks a user up by provider pair, bypassing the cache.
func (s *Service) ByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	return s.repo.FindByProvider(ctx, provider, providerID)
}

// cacheProfile overwrites the user's cache entry with a fresh TTL.
func (s *Service) cacheProfile(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshaling profile: %w", err))
	}
	if err := s.redis.Set(ctx, profileKeyPrefix+u.ID, data, s.ttl).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("writing profile cache: %w", err))
	}
	return nil
}
