package models

import (
	"time"
)

// Identity is the authenticated Google user as returned by the userinfo endpoint.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// Token mirrors the OAuth token endpoint response.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// ExpiryFrom returns the absolute expiry of the token when issued at issuedAt.
func (t *Token) ExpiryFrom(issuedAt time.Time) time.Time {
	return issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Session pairs an Identity with the Token it was issued. Both are always present together.
type Session struct {
	Identity  Identity
	Token     Token
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	clone := *s
	return &clone
}
