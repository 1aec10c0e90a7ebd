package login

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var mockNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestMock(opts ...MockOption) *Mock {
	return NewMock(append([]MockOption{
		WithMockLatency(0),
		WithMockClock(func() time.Time { return mockNow }),
	}, opts...)...)
}

func TestMock_Begin(t *testing.T) {
	m := newTestMock()
	require.Equal(t, FlowIdle, m.State())

	begin, err := m.Begin(context.Background())
	require.NoError(t, err)
	require.Empty(t, begin.RedirectURL)
	require.NotNil(t, begin.Session)
	require.Equal(t, FlowAuthenticated, m.State())

	ms := "1779278400000"
	sess := begin.Session
	require.Equal(t, "mock_user_"+ms, sess.Identity.ID)
	require.Equal(t, "demo@katalyst.com", sess.Identity.Email)
	require.Equal(t, "Demo User", sess.Identity.Name)
	require.Equal(t, "Demo", sess.Identity.GivenName)
	require.Equal(t, "User", sess.Identity.FamilyName)
	require.Contains(t, sess.Identity.Picture, "ui-avatars.com")

	require.Equal(t, "mock_access_token_"+ms, sess.Token.AccessToken)
	require.Equal(t, "mock_refresh_token_"+ms, sess.Token.RefreshToken)
	require.Equal(t, "mock_id_token_"+ms, sess.Token.IDToken)
	require.Equal(t, "Bearer", sess.Token.TokenType)
	require.Equal(t, int64(3600), sess.Token.ExpiresIn)
	require.Equal(t, strings.Join(DefaultScopes, " "), sess.Token.Scope)
	require.Equal(t, mockNow.Add(time.Hour), sess.ExpiresAt)
}

func TestMock_BeginHonoursContext(t *testing.T) {
	m := NewMock(WithMockLatency(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Begin(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, FlowFailed, m.State())
}

func TestMock_Complete(t *testing.T) {
	m := newTestMock()

	sess, err := m.Complete(context.Background(), Callback{Code: "ignored"})
	require.NoError(t, err)
	require.Equal(t, "demo@katalyst.com", sess.Identity.Email)
	require.Equal(t, FlowAuthenticated, m.State())
}

func TestMock_Refresh(t *testing.T) {
	m := newTestMock(WithMockScopes([]string{"openid", "email"}))

	tok, err := m.Refresh(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "mock_refreshed_token_1779278400000", tok.AccessToken)
	require.Equal(t, "openid email", tok.Scope)
	require.Equal(t, int64(3600), tok.ExpiresIn)
	require.Empty(t, tok.RefreshToken)
	require.Empty(t, tok.IDToken)
}

func TestFlowState_String(t *testing.T) {
	require.Equal(t, "idle", FlowIdle.String())
	require.Equal(t, "awaiting_callback", FlowAwaitingCallback.String())
	require.Equal(t, "authenticated", FlowAuthenticated.String())
	require.Equal(t, "failed", FlowFailed.String())
}
