package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/user"
)

// loginCodeKeyPrefix is the Redis key prefix for one-time login codes,
// keyed by the phone number or email address the code was issued for.
const loginCodeKeyPrefix = "login-code:"

// loginCodeDigits is the length of a verification code.
const loginCodeDigits = 6

// invalidLoginMessage is the single message for every failed login attempt.
// Unknown identifier, unset password, and wrong password are deliberately
// indistinguishable to the caller.
const invalidLoginMessage = "invalid identifier or password"

// Service implements the login flows. Handlers call these methods -- they
// never touch the user repository or Redis directly.
type Service struct {
	users    *user.Service
	sessions *session.Manager
	redis    *redis.Client
	codeTTL  time.Duration
}

// NewService creates an auth service with the given dependencies.
func NewService(users *user.Service, sessions *session.Manager, rdb *redis.Client, codeTTL time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		redis:    rdb,
		codeTTL:  codeTTL,
	}
}

// RequestCode issues a one-time login code for a phone number or email
// address. The code is held in Redis until it is redeemed or its TTL
// elapses. No SMS or mail transport is wired; the code is logged at debug
// level for out-of-band delivery during development.
func (s *Service) RequestCode(ctx context.Context, target string) error {
	code, err := generateLoginCode()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating login code: %w", err))
	}

	if err := s.redis.Set(ctx, loginCodeKeyPrefix+target, code, s.codeTTL).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("storing login code: %w", err))
	}

	slog.Debug("login code issued",
		slog.String("target", target),
		slog.String("code", code),
	)

	return nil
}

// LoginWithPhone redeems a verification code for the given phone number.
// A first-time caller is provisioned on the spot.
func (s *Service) LoginWithPhone(ctx context.Context, phone, code string) (*LoginResult, error) {
	if err := s.redeemCode(ctx, phone, code); err != nil {
		return nil, err
	}

	u, err := s.findOrCreate(ctx,
		func() (*user.User, error) { return s.users.ByPhone(ctx, phone) },
		user.CreateInput{Phone: &phone},
	)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, u)
}

// LoginWithEmail redeems a verification code for the given email address.
// A first-time caller is provisioned on the spot.
func (s *Service) LoginWithEmail(ctx context.Context, email, code string) (*LoginResult, error) {
	if err := s.redeemCode(ctx, email, code); err != nil {
		return nil, err
	}

	u, err := s.findOrCreate(ctx,
		func() (*user.User, error) { return s.users.ByEmail(ctx, email) },
		user.CreateInput{Email: &email},
	)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, u)
}

// LoginWithProvider signs in via an external identity provider pair. The
// provider is trusted to have authenticated the subject already; a
// first-time pair is provisioned on the spot.
func (s *Service) LoginWithProvider(ctx context.Context, provider, providerID string) (*LoginResult, error) {
	u, err := s.findOrCreate(ctx,
		func() (*user.User, error) { return s.users.ByProvider(ctx, provider, providerID) },
		user.CreateInput{Provider: &provider, ProviderID: &providerID},
	)
	if err != nil {
		return nil, err
	}

	return s.establishSession(ctx, u)
}

// LoginWithPassword authenticates an identifier (email, then phone) against
// the stored bcrypt hash. The lookup bypasses the profile cache: identity
// resolution before authentication always reads the durable record.
func (s *Service) LoginWithPassword(ctx context.Context, identifier, password string) (*LoginResult, error) {
	u, err := s.users.ByEmail(ctx, identifier)
	if isNotFound(err) {
		u, err = s.users.ByPhone(ctx, identifier)
	}
	if isNotFound(err) {
		return nil, apperror.NewUnauthenticated(invalidLoginMessage)
	}
	if err != nil {
		return nil, err
	}

	if !u.HasPassword() {
		return nil, apperror.NewUnauthenticated(invalidLoginMessage)
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		return nil, apperror.NewUnauthenticated(invalidLoginMessage)
	}

	return s.establishSession(ctx, u)
}

// SetPassword bcrypt-hashes the password and stores it on the caller's
// record; the profile cache entry refreshes write-through with the rest of
// the record.
func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	if len(password) < 8 {
		return apperror.NewBadRequest("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	hashStr := string(hash)
	if _, err := s.users.Update(ctx, userID, user.Patch{PasswordHash: &hashStr}); err != nil {
		return err
	}

	slog.Info("password set", slog.String("user_id", userID))

	return nil
}

// Logout revokes the presented token. Idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// redeemCode checks a one-time code and consumes it on success.
func (s *Service) redeemCode(ctx context.Context, target, code string) error {
	stored, err := s.redis.Get(ctx, loginCodeKeyPrefix+target).Result()
	if errors.Is(err, redis.Nil) {
		return apperror.NewUnauthenticated("invalid or expired code")
	}
	if err != nil {
		return apperror.NewUnavailable(fmt.Errorf("reading login code: %w", err))
	}
	if code == "" || stored != code {
		return apperror.NewUnauthenticated("invalid or expired code")
	}

	if err := s.redis.Del(ctx, loginCodeKeyPrefix+target).Err(); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("consuming login code: %w", err))
	}

	return nil
}

// findOrCreate resolves a user by the given lookup, provisioning a new
// record on NotFound.
func (s *Service) findOrCreate(ctx context.Context, find func() (*user.User, error), in user.CreateInput) (*user.User, error) {
	u, err := find()
	if isNotFound(err) {
		return s.users.Create(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// establishSession mints a token for the user and logs the login.
func (s *Service) establishSession(ctx context.Context, u *user.User) (*LoginResult, error) {
	token, err := s.sessions.Mint(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", u.ID))

	return &LoginResult{User: u, Token: token}, nil
}

// generateLoginCode creates a random zero-padded numeric code.
func generateLoginCode() (string, error) {
	max := big.NewInt(1)
	for range loginCodeDigits {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", loginCodeDigits, n), nil
}

// isNotFound reports whether err is an apperror with status 404.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}
