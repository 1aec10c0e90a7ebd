package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wolfeidau/calendash/internal/models"
)

var (
	// ErrNoToken is returned by live sources called without an access token.
	ErrNoToken = errors.New("no access token")
	// ErrUnauthorized matches a StatusError carrying a 401.
	ErrUnauthorized = errors.New("calendar endpoint rejected the access token")
)

// Source fetches raw meetings for the holder of a token. Implementations may fail;
// callers wanting a guaranteed result go through FailSoft.
type Source interface {
	Fetch(ctx context.Context, token *models.Token) ([]models.Meeting, error)
}

// StatusError is returned when a calendar endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("calendar endpoint returned %s", e.Status)
	}
	return fmt.Sprintf("calendar endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// ParseError wraps a response body that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to decode calendar response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func requireToken(token *models.Token) error {
	if token == nil || token.AccessToken == "" {
		return ErrNoToken
	}
	return nil
}
