package login

import (
	"errors"
	"fmt"
)

var (
	// ErrCSRFMismatch is returned when the callback state does not match the stored state.
	ErrCSRFMismatch = errors.New("oauth state mismatch")
	// ErrMissingAuthorizationCode is returned when the callback carries no code.
	ErrMissingAuthorizationCode = errors.New("authorization code missing from callback")
	// ErrNoRefreshToken is returned when a refresh is requested for a token without one.
	ErrNoRefreshToken = errors.New("token has no refresh token")
)

// ProviderError is an error reported by the identity provider on the callback.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider returned error %q: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("provider returned error %q", e.Code)
}

// TokenExchangeError wraps a failed authorization code exchange. StatusCode is
// zero when no response was received.
type TokenExchangeError struct {
	StatusCode int
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// UserInfoFetchError wraps a failed userinfo request.
type UserInfoFetchError struct {
	Err error
}

func (e *UserInfoFetchError) Error() string {
	return fmt.Sprintf("failed to fetch user info: %v", e.Err)
}

func (e *UserInfoFetchError) Unwrap() error { return e.Err }

// RefreshError wraps a failed refresh_token grant.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
