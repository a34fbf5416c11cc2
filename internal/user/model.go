// Package user holds user records and the profile cache that fronts them.
// Reads by primary key go through Redis (read-through, fixed TTL); every
// mutation synchronously rewrites the cache entry (write-through).
// Secondary-key lookups (phone, email, provider) always bypass the cache:
// they serve pre-authentication identity resolution where freshness matters
// more than latency, and no cache key is defined for non-primary keys.
package user

import (
	"time"
)

// User is the domain model for a registered user. Database scanning, JSON
// responses, and the cache entry all use this struct directly. The password
// hash is excluded from JSON, so it never enters the cache or a response;
// password checks read the durable record instead.
type User struct {
	ID           string    `json:"userId"`
	Phone        *string   `json:"phone"`
	Email        *string   `json:"email"`
	Provider     *string   `json:"provider"`
	ProviderID   *string   `json:"providerId"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether a password has been set for this user.
// Code-based and provider logins create users without one.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// CreateInput carries the fields for a new user. Nil fields stay unset.
type CreateInput struct {
	Phone        *string
	Email        *string
	Provider     *string
	ProviderID   *string
	PasswordHash *string
}

// hasIdentity reports whether at least one identifying attribute is set:
// phone, email, or a complete provider pair. Creation requires one.
func (in CreateInput) hasIdentity() bool {
	if in.Phone != nil && *in.Phone != "" {
		return true
	}
	if in.Email != nil && *in.Email != "" {
		return true
	}
	return in.Provider != nil && *in.Provider != "" &&
		in.ProviderID != nil && *in.ProviderID != ""
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Phone        *string
	Email        *string
	PasswordHash *string
}

// UpdateRequest is the body of PUT /users/:id.
type UpdateRequest struct {
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}
