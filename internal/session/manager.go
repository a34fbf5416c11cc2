// Package session owns the lifecycle of authentication tokens: minting,
// mirroring, validating, revoking. A token is an HS256-signed JWT binding a
// user ID and an expiry, and is only considered live while a mirror entry
// for it exists in Redis. The double-check is deliberate: the signature
// rejects forged or garbled tokens without a network round trip, and the
// mirror entry is what makes server-side revocation possible -- a pure
// stateless JWT cannot be revoked before its claimed expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/apperror"
)

// Redis key prefixes for the token mirror. tokenKeyPrefix maps token ->
// user ID and is the authoritative liveness record. userTokenKeyPrefix maps
// user ID -> most recently minted token (secondary lookup only; it is never
// consulted during validation).
const (
	tokenKeyPrefix     = "token:"
	userTokenKeyPrefix = "user-token:"
)

// invalidTokenMessage is the single client-visible message for every
// validation failure. Signature, expiry, and revocation failures are
// indistinguishable to the caller on purpose.
const invalidTokenMessage = "invalid or expired token"

// Manager mints, validates, and revokes session tokens. Safe for concurrent
// use; all shared state lives in Redis.
type Manager struct {
	redis  *redis.Client
	secret []byte
	ttl    time.Duration

	// now is swapped out by tests to exercise embedded-expiry handling.
	now func() time.Time
}

// NewManager creates a session manager. The secret signs all tokens and the
// TTL bounds both the embedded expiry and the mirror entries.
func NewManager(rdb *redis.Client, secret []byte, ttl time.Duration) *Manager {
	return &Manager{
		redis:  rdb,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint generates a signed token for the given user and mirrors it in Redis
// under both the token->user and user->token keys, each with the session
// TTL. Earlier mirror entries for the same user are left alone: multiple
// concurrent sessions per user are permitted, each valid until its own TTL
// elapses.
func (m *Manager) Mint(ctx context.Context, userID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		// The jti keeps tokens minted within the same second distinct, so
		// every session gets its own mirror entry.
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("signing token: %w", err))
	}

	if err := m.redis.Set(ctx, tokenKeyPrefix+token, userID, m.ttl).Err(); err != nil {
		return "", apperror.NewUnavailable(fmt.Errorf("storing token mirror: %w", err))
	}
	if err := m.redis.Set(ctx, userTokenKeyPrefix+userID, token, m.ttl).Err(); err != nil {
		return "", apperror.NewUnavailable(fmt.Errorf("storing user token lookup: %w", err))
	}

	return token, nil
}

// Validate returns the user ID bound to a live token. The signature and
// embedded expiry are verified locally first so malformed or stale tokens
// fail fast without touching Redis. A token that passes the local check is
// then required to have a mirror entry; its absence covers both explicit
// revocation and store-side TTL expiry.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, m.signingKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", apperror.NewUnauthenticated(invalidTokenMessage)
	}

	userID, err := m.redis.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.NewUnauthenticated(invalidTokenMessage)
	}
	if err != nil {
		return "", apperror.NewUnavailable(fmt.Errorf("reading token mirror: %w", err))
	}

	return userID, nil
}

// Revoke deletes a token's mirror entries. Subsequent Validate calls fail
// even though the signature stays valid until the embedded expiry. Revoking
// an unknown or already-revoked token is a no-op, not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	userID, err := m.redis.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return apperror.NewUnavailable(fmt.Errorf("reading token mirror: %w", err))
	}

	if err := m.redis.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("deleting token mirror: %w", err))
	}

	// Drop the secondary lookup only while it still points at this token;
	// a re-login may have repointed it at a newer session.
	current, err := m.redis.Get(ctx, userTokenKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return apperror.NewUnavailable(fmt.Errorf("reading user token lookup: %w", err))
	}
	if current == token {
		if err := m.redis.Del(ctx, userTokenKeyPrefix+userID).Err(); err != nil {
			return apperror.NewUnavailable(fmt.Errorf("deleting user token lookup: %w", err))
		}
	}

	return nil
}

// signingKey is the jwt.Keyfunc for token verification. The signing method
// is already pinned to HS256 by the parser options.
func (m *Manager) signingKey(*jwt.Token) (any, error) {
	return m.secret, nil
}
