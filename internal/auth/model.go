// Package auth implements the login flows in front of the session manager:
// phone and email verification codes, external provider identities, and
// identifier+password. Users are auto-provisioned on first code or provider
// login, matching how the accounts were designed to come into existence.
package auth

import (
	"github.com/parleyhq/parley/internal/user"
)

// --- Request DTOs (bound from HTTP requests) ---

// CodeRequest asks for a login verification code. Exactly one of phone or
// email must be set.
type CodeRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// PhoneLoginRequest holds a phone login attempt.
type PhoneLoginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// EmailLoginRequest holds an email login attempt.
type EmailLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ProviderLoginRequest holds an external provider login attempt.
type ProviderLoginRequest struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"providerId"`
}

// PasswordLoginRequest holds a password login attempt. The identifier may
// be an email address or a phone number.
type PasswordLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SetPasswordRequest sets or replaces the caller's password.
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// --- Results ---

// LoginResult is the payload of every successful login.
type LoginResult struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}
