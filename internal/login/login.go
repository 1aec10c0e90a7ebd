package login

import (
	"context"
	"net/url"
	"sync"

	"github.com/wolfeidau/calendash/internal/models"
)

// DefaultScopes are requested from Google when none are configured.
var DefaultScopes = []string{
	"openid",
	"profile",
	"email",
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events.readonly",
}

// Provider runs the login flow against an identity provider.
type Provider interface {
	// Begin starts a login. Providers that need a browser round trip return a
	// RedirectURL, others return the Session directly.
	Begin(ctx context.Context) (*Begin, error)
	// Complete finishes a login from the provider callback.
	Complete(ctx context.Context, cb Callback) (*models.Session, error)
	// Refresh exchanges the refresh token in token for a new access token.
	Refresh(ctx context.Context, token *models.Token) (*models.Token, error)
	State() FlowState
}

// StateStore persists the CSRF state between Begin and Complete.
type StateStore interface {
	SaveState(ctx context.Context, state string) error
	TakeState(ctx context.Context) (string, bool)
}

// Begin is the result of starting a login.
type Begin struct {
	Session     *models.Session
	RedirectURL string
}

// Callback carries the query parameters of the redirect back from the provider.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackFromQuery reads a Callback from the redirect query string.
func CallbackFromQuery(q url.Values) Callback {
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// FlowState is the position of a provider in the login flow.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowAwaitingCallback
	FlowAuthenticated
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowAwaitingCallback:
		return "awaiting_callback"
	case FlowAuthenticated:
		return "authenticated"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// flow guards the FlowState shared by a provider's methods.
type flow struct {
	mu    sync.Mutex
	state FlowState
}

func (f *flow) get() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *flow) set(s FlowState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// finish records the outcome of a flow step and returns err unchanged.
func (f *flow) finish(err error) error {
	if err != nil {
		f.set(FlowFailed)
	} else {
		f.set(FlowAuthenticated)
	}
	return err
}
