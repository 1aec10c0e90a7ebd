package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// createTestStore creates a session store backed by memory stores and a fixed clock
func createTestStore(t *testing.T) (*Store, *memory.KVStore, *memory.KVStore, *fakeClock) {
	t.Helper()

	durable := memory.NewKVStore()
	ephemeral := memory.NewKVStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	return NewStore(durable, ephemeral, WithClock(clock.Now)), durable, ephemeral, clock
}

func testToken() *models.Token {
	return &models.Token{
		AccessToken:  "access-123",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		Scope:        "openid email",
		RefreshToken: "refresh-123",
		IDToken:      "id-123",
	}
}

func testIdentity() *models.Identity {
	return &models.Identity{
		ID:      "user-1",
		Email:   "test@example.com",
		Name:    "Test User",
		Picture: "https://example.com/me.png",
	}
}

func TestStore_SaveLoad(t *testing.T) {
	st, durable, _, clock := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, testToken(), testIdentity()))

	expiry, err := durable.Get(ctx, KeyExpiry)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(clock.now.Add(time.Hour).UnixMilli(), 10), expiry)

	sess, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, *testToken(), sess.Token)
	require.Equal(t, *testIdentity(), sess.Identity)
	require.True(t, sess.ExpiresAt.Equal(clock.now.Add(time.Hour)))
	require.True(t, st.IsAuthenticated(ctx))
}

func TestStore_SaveRequiresBoth(t *testing.T) {
	st, _, _, _ := createTestStore(t)

	require.Error(t, st.Save(context.Background(), nil, testIdentity()))
	require.Error(t, st.Save(context.Background(), testToken(), nil))
}

func TestStore_LoadExpired(t *testing.T) {
	st, durable, _, clock := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, testToken(), testIdentity()))

	// exactly at expiry is still valid
	clock.Advance(time.Hour)
	_, err := st.Load(ctx)
	require.NoError(t, err)

	clock.Advance(time.Millisecond)
	sess, err := st.Load(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Nil(t, sess)

	// lazy expiry purges all keys
	require.Equal(t, 0, durable.Len())
	require.False(t, st.IsAuthenticated(ctx))
}

func TestStore_LoadMissingKey(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{"missing token", KeyToken},
		{"missing user", KeyUser},
		{"missing expiry", KeyExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, durable, _, _ := createTestStore(t)
			ctx := context.Background()

			require.NoError(t, st.Save(ctx, testToken(), testIdentity()))
			require.NoError(t, durable.Delete(ctx, tt.missing))

			sess, err := st.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)
			require.Nil(t, sess)
			require.Equal(t, 0, durable.Len())
		})
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"corrupt token", KeyToken, "{not-json"},
		{"corrupt user", KeyUser, "[1,2"},
		{"corrupt expiry", KeyExpiry, "tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, durable, _, _ := createTestStore(t)
			ctx := context.Background()

			require.NoError(t, st.Save(ctx, testToken(), testIdentity()))
			require.NoError(t, durable.Set(ctx, tt.key, tt.value))

			sess, err := st.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)
			require.Nil(t, sess)
			require.Equal(t, 0, durable.Len())
		})
	}
}

func TestStore_Clear(t *testing.T) {
	t.Run("clears session and state", func(t *testing.T) {
		st, durable, ephemeral, _ := createTestStore(t)
		ctx := context.Background()

		require.NoError(t, st.Save(ctx, testToken(), testIdentity()))
		require.NoError(t, st.SaveState(ctx, "state-1"))

		require.NoError(t, st.Clear(ctx))
		require.Equal(t, 0, durable.Len())
		require.Equal(t, 0, ephemeral.Len())

		_, err := st.Load(ctx)
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("clear on empty store is a no-op", func(t *testing.T) {
		st, _, _, _ := createTestStore(t)
		ctx := context.Background()

		require.NoError(t, st.Clear(ctx))
		require.NoError(t, st.Clear(ctx))

		_, err := st.Load(ctx)
		require.ErrorIs(t, err, ErrNoSession)
	})
}

func TestStore_TakeState(t *testing.T) {
	st, _, ephemeral, _ := createTestStore(t)
	ctx := context.Background()

	_, ok := st.TakeState(ctx)
	require.False(t, ok)

	require.NoError(t, st.SaveState(ctx, "state-abc"))

	state, ok := st.TakeState(ctx)
	require.True(t, ok)
	require.Equal(t, "state-abc", state)
	require.Equal(t, 0, ephemeral.Len())

	// consumed exactly once
	_, ok = st.TakeState(ctx)
	require.False(t, ok)
}

func TestStore_SaveThenLoadProperty(t *testing.T) {
	for _, expiresIn := range []int64{1, 60, 3600, 86400} {
		st, _, _, clock := createTestStore(t)
		ctx := context.Background()

		tok := testToken()
		tok.ExpiresIn = expiresIn
		require.NoError(t, st.Save(ctx, tok, testIdentity()))

		clock.Advance(time.Duration(expiresIn)*time.Second - time.Millisecond)
		sess, err := st.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, *tok, sess.Token)

		clock.Advance(2 * time.Millisecond)
		_, err = st.Load(ctx)
		require.ErrorIs(t, err, ErrSessionExpired)
	}
}
