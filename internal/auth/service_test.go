package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/user"
)

// --- Mock User Repository ---

// mockUserRepo implements user.Repository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, u *user.User) error
	findByIDFn       func(ctx context.Context, id string) (*user.User, error)
	findByPhoneFn    func(ctx context.Context, phone string) (*user.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*user.User, error)
	findByProviderFn func(ctx context.Context, provider, providerID string) (*user.User, error)
	updateFn         func(ctx context.Context, id string, patch user.Patch) (*user.User, error)

	createCount int
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error {
	m.createCount++
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	if m.findByPhoneFn != nil {
		return m.findByPhoneFn(ctx, phone)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByProvider(ctx context.Context, provider, providerID string) (*user.User, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerID)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) Update(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, apperror.NewNotFound("user not found")
}

// --- Test Helpers ---

func strptr(s string) *string { return &s }

type testEnv struct {
	mr       *miniredis.Miniredis
	repo     *mockUserRepo
	sessions *session.Manager
	svc      *Service
}

func setupAuth(t *testing.T, repo *mockUserRepo) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	sessions := session.NewManager(client, []byte("auth-test-secret-key-0123456789ab"), time.Hour)
	users := user.NewService(repo, client, time.Hour)

	return &testEnv{
		mr:       mr,
		repo:     repo,
		sessions: sessions,
		svc:      NewService(users, sessions, client, 5*time.Minute),
	}
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected unauthenticated error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d (message: %s)", appErr.Code, appErr.Message)
	}
}

// issuedCode requests a code and reads it back from the store.
func issuedCode(t *testing.T, env *testEnv, target string) string {
	t.Helper()
	if err := env.svc.RequestCode(context.Background(), target); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	code, err := env.mr.Get(loginCodeKeyPrefix + target)
	if err != nil {
		t.Fatalf("code not stored: %v", err)
	}
	if len(code) != loginCodeDigits {
		t.Fatalf("expected %d-digit code, got %q", loginCodeDigits, code)
	}
	return code
}

// --- Code Login Tests ---

func TestLoginWithPhone_ProvisionsFirstTimeUser(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})
	ctx := context.Background()

	code := issuedCode(t, env, "13800000000")

	result, err := env.svc.LoginWithPhone(ctx, "13800000000", code)
	if err != nil {
		t.Fatalf("LoginWithPhone failed: %v", err)
	}
	if env.repo.createCount != 1 {
		t.Errorf("expected first-time user provisioning, got %d creates", env.repo.createCount)
	}
	if result.User.Phone == nil || *result.User.Phone != "13800000000" {
		t.Errorf("expected phone on provisioned user, got %v", result.User.Phone)
	}

	// The returned token must be immediately valid.
	userID, err := env.sessions.Validate(ctx, result.Token)
	if err != nil {
		t.Fatalf("minted token failed validation: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token resolves to %s, want %s", userID, result.User.ID)
	}
}

func TestLoginWithPhone_ExistingUserNotRecreated(t *testing.T) {
	existing := &user.User{ID: "u1", Phone: strptr("13800000000"), CreatedAt: time.Now().UTC()}
	env := setupAuth(t, &mockUserRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*user.User, error) {
			return existing, nil
		},
	})

	code := issuedCode(t, env, "13800000000")

	result, err := env.svc.LoginWithPhone(context.Background(), "13800000000", code)
	if err != nil {
		t.Fatalf("LoginWithPhone failed: %v", err)
	}
	if env.repo.createCount != 0 {
		t.Errorf("existing user must not be recreated")
	}
	if result.User.ID != "u1" {
		t.Errorf("expected u1, got %s", result.User.ID)
	}
}

func TestLoginWithPhone_WrongCode(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})

	issuedCode(t, env, "13800000000")

	_, err := env.svc.LoginWithPhone(context.Background(), "13800000000", "000000x")
	assertUnauthenticated(t, err)
}

func TestLoginWithEmail_CodeIsSingleUse(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})
	ctx := context.Background()

	code := issuedCode(t, env, "a@example.com")

	if _, err := env.svc.LoginWithEmail(ctx, "a@example.com", code); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	_, err := env.svc.LoginWithEmail(ctx, "a@example.com", code)
	assertUnauthenticated(t, err)
}

func TestLoginWithEmail_NoCodeRequested(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})

	_, err := env.svc.LoginWithEmail(context.Background(), "a@example.com", "123456")
	assertUnauthenticated(t, err)
}

// --- Provider Login Tests ---

func TestLoginWithProvider(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})

	result, err := env.svc.LoginWithProvider(context.Background(), "wechat", "openid-1")
	if err != nil {
		t.Fatalf("LoginWithProvider failed: %v", err)
	}
	if env.repo.createCount != 1 {
		t.Errorf("expected provisioning for unknown provider pair")
	}
	if result.User.Provider == nil || *result.User.Provider != "wechat" {
		t.Errorf("expected provider on user, got %v", result.User.Provider)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
}

// --- Password Login Tests ---

func passwordUser(t *testing.T, id, password string) *user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	hashStr := string(hash)
	return &user.User{
		ID:           id,
		Email:        strptr("a@example.com"),
		PasswordHash: &hashStr,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestLoginWithPassword_Success(t *testing.T) {
	u := passwordUser(t, "u1", "correct-horse")
	env := setupAuth(t, &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) {
			return u, nil
		},
	})

	result, err := env.svc.LoginWithPassword(context.Background(), "a@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
	if result.User.ID != "u1" {
		t.Errorf("expected u1, got %s", result.User.ID)
	}
}

func TestLoginWithPassword_FallsBackToPhone(t *testing.T) {
	u := passwordUser(t, "u1", "correct-horse")
	env := setupAuth(t, &mockUserRepo{
		findByPhoneFn: func(ctx context.Context, phone string) (*user.User, error) {
			return u, nil
		},
	})

	result, err := env.svc.LoginWithPassword(context.Background(), "13800000000", "correct-horse")
	if err != nil {
		t.Fatalf("LoginWithPassword via phone failed: %v", err)
	}
	if result.User.ID != "u1" {
		t.Errorf("expected u1, got %s", result.User.ID)
	}
}

func TestLoginWithPassword_FailuresAreIndistinguishable(t *testing.T) {
	u := passwordUser(t, "u1", "correct-horse")
	noPassword := &user.User{ID: "u2", Email: strptr("b@example.com"), CreatedAt: time.Now().UTC()}

	env := setupAuth(t, &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) {
			switch email {
			case "a@example.com":
				return u, nil
			case "b@example.com":
				return noPassword, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	})
	ctx := context.Background()

	cases := []struct {
		name       string
		identifier string
		password   string
	}{
		{"unknown identifier", "nobody@example.com", "whatever"},
		{"no password set", "b@example.com", "whatever"},
		{"wrong password", "a@example.com", "wrong"},
	}

	var messages []string
	for _, tc := range cases {
		_, err := env.svc.LoginWithPassword(ctx, tc.identifier, tc.password)
		assertUnauthenticated(t, err)
		messages = append(messages, apperror.SafeMessage(err))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i] != messages[0] {
			t.Errorf("failure messages differ (%q vs %q): cause is leaking", messages[0], messages[i])
		}
	}
}

// --- Set Password / Logout ---

func TestSetPassword_StoresVerifiableHash(t *testing.T) {
	var stored *string
	env := setupAuth(t, &mockUserRepo{
		updateFn: func(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
			stored = patch.PasswordHash
			return &user.User{ID: id, PasswordHash: patch.PasswordHash, CreatedAt: time.Now().UTC()}, nil
		},
	})

	if err := env.svc.SetPassword(context.Background(), "u1", "long-enough-pw"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected password hash to reach the repository")
	}
	if bcrypt.CompareHashAndPassword([]byte(*stored), []byte("long-enough-pw")) != nil {
		t.Error("stored hash does not verify against the password")
	}
}

func TestSetPassword_TooShort(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})

	err := env.svc.SetPassword(context.Background(), "u1", "short")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusBadRequest {
		t.Fatalf("expected BadRequest, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := setupAuth(t, &mockUserRepo{})
	ctx := context.Background()

	token, err := env.sessions.Mint(ctx, "u1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if err := env.svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	_, err = env.sessions.Validate(ctx, token)
	assertUnauthenticated(t, err)

	// Logging out again is a no-op.
	if err := env.svc.Logout(ctx, token); err != nil {
		t.Errorf("repeated Logout should be a no-op, got %v", err)
	}
}
