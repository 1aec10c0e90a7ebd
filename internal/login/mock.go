package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/calendash/internal/models"
)

// DefaultMockLatency is how long the mock provider pretends to talk to Google.
const DefaultMockLatency = 1500 * time.Millisecond

const mockExpiresIn = 3600

// Mock fabricates a demo identity and token without any network access.
type Mock struct {
	latency time.Duration
	scopes  []string
	now     func() time.Time
	flow    flow
}

type MockOption func(*Mock)

// WithMockLatency sets the simulated provider latency.
func WithMockLatency(d time.Duration) MockOption {
	return func(m *Mock) {
		m.latency = d
	}
}

// WithMockScopes sets the scope string written into fabricated tokens.
func WithMockScopes(scopes []string) MockOption {
	return func(m *Mock) {
		m.scopes = scopes
	}
}

// WithMockClock overrides the clock used for fabricated ids and expiry.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *Mock) {
		m.now = now
	}
}

func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		latency: DefaultMockLatency,
		scopes:  DefaultScopes,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin waits out the simulated latency and returns a logged in session.
func (m *Mock) Begin(ctx context.Context) (*Begin, error) {
	m.flow.set(FlowIdle)

	if err := m.wait(ctx); err != nil {
		return nil, m.flow.finish(err)
	}

	sess := m.session()
	log.Info().Str("user", sess.Identity.Email).Msg("mock login completed")

	return &Begin{Session: sess}, m.flow.finish(nil)
}

// Complete ignores the callback contents and returns a fabricated session.
func (m *Mock) Complete(ctx context.Context, _ Callback) (*models.Session, error) {
	if err := m.wait(ctx); err != nil {
		return nil, m.flow.finish(err)
	}
	return m.session(), m.flow.finish(nil)
}

// Refresh returns a new fabricated access token. The result carries no refresh or id token.
func (m *Mock) Refresh(ctx context.Context, _ *models.Token) (*models.Token, error) {
	if err := m.wait(ctx); err != nil {
		return nil, &RefreshError{Err: err}
	}

	return &models.Token{
		AccessToken: fmt.Sprintf("mock_refreshed_token_%d", m.now().UnixMilli()),
		TokenType:   "Bearer",
		ExpiresIn:   mockExpiresIn,
		Scope:       strings.Join(m.scopes, " "),
	}, nil
}

func (m *Mock) State() FlowState {
	return m.flow.get()
}

func (m *Mock) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(m.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Mock) session() *models.Session {
	now := m.now()
	ms := now.UnixMilli()

	token := models.Token{
		AccessToken:  fmt.Sprintf("mock_access_token_%d", ms),
		TokenType:    "Bearer",
		ExpiresIn:    mockExpiresIn,
		Scope:        strings.Join(m.scopes, " "),
		RefreshToken: fmt.Sprintf("mock_refresh_token_%d", ms),
		IDToken:      fmt.Sprintf("mock_id_token_%d", ms),
	}

	return &models.Session{
		Identity: models.Identity{
			ID:         fmt.Sprintf("mock_user_%d", ms),
			Email:      "demo@katalyst.com",
			Name:       "Demo User",
			Picture:    "https://ui-avatars.com/api/?name=Demo+User&background=3b82f6&color=fff&size=128",
			GivenName:  "Demo",
			FamilyName: "User",
		},
		Token:     token,
		ExpiresAt: token.ExpiryFrom(now),
	}
}
