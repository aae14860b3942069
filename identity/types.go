package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// User is the provider-owned identity record. It is read-only to clients.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time     `json:"confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// MetadataString returns a trimmed string value from user metadata, or "" when
// the key is missing or not a string.
func (u *User) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	raw, ok := u.UserMetadata[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	// ExpiresAt is unix seconds; zero means unknown.
	ExpiresAt int64 `json:"expires_at,omitempty"`
	User      User  `json:"user"`
}

// Expired reports whether the access token is past its expiry, minus margin.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(margin).Unix() >= s.ExpiresAt
}

// SignUpParams describes a new email/password registration.
type SignUpParams struct {
	Email    string
	Password string
	// Data is stored as user metadata by the provider.
	Data map[string]any
	// EmailRedirectTo is the URL placed in the confirmation link.
	EmailRedirectTo string
}

// SignUpResult is the provider response to a registration. Session is nil
// when the provider requires email confirmation first.
type SignUpResult struct {
	User    *User
	Session *Session
}

// Storage persists the current session between calls.
//
// Load returns (nil, nil) when no session is stored.
type Storage interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Remove(ctx context.Context) error
}
