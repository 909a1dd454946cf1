package models

import "time"

// User is the identity the provider vouches for.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// TokenPair is what the client hands to the session propagation endpoint.
type TokenPair struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
}

// Empty reports whether either half of the pair is missing.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" || p.RefreshToken == ""
}

// Session is an authenticated identity plus its token pair.
type Session struct {
	TokenPair `yaml:",inline"`
	User      User      `json:"user" yaml:"user"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Valid reports whether the session can scope task queries. A session
// without a user id is never valid.
func (s *Session) Valid() bool {
	return s != nil && s.User.ID != "" && s.AccessToken != ""
}

// Expired reports whether the access token is past its expiry at now.
// Sessions without a known expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// PendingConfirmation is the outcome of a sign-up: the account exists but
// the email address has not been confirmed yet.
type PendingConfirmation struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
