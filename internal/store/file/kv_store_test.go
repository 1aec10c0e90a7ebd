package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/calendash/internal/store"
)

func TestNewKVStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		dir := filepath.Join(tmpDir, "nested")

		st, err := NewKVStore(filepath.Join(dir, "session.json"))
		require.NoError(t, err)
		assert.NotNil(t, st)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("default path is under XDG data home", func(t *testing.T) {
		path := DefaultPath()
		require.True(t, strings.HasPrefix(path, filepath.Join(xdg.DataHome, "calendash")))
		require.Equal(t, "session.json", filepath.Base(path))
	})
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	st, err := NewKVStore(path)
	require.NoError(t, err)

	require.NoError(t, st.Set(ctx, "oauth_token", `{"access_token":"abc"}`))
	require.NoError(t, st.Set(ctx, "token_expiry", "1700000000000"))

	value, err := st.Get(ctx, "oauth_token")
	require.NoError(t, err)
	require.Equal(t, `{"access_token":"abc"}`, value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second store on the same path sees the persisted data
	reopened, err := NewKVStore(path)
	require.NoError(t, err)

	value, err = reopened.Get(ctx, "token_expiry")
	require.NoError(t, err)
	require.Equal(t, "1700000000000", value)
}

func TestKVStore_GetMissing(t *testing.T) {
	st, err := NewKVStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	_, err = st.Get(context.Background(), "user_info")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestKVStore_Delete(t *testing.T) {
	ctx := context.Background()
	st, err := NewKVStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	require.NoError(t, st.Set(ctx, "a", "1"))
	require.NoError(t, st.Set(ctx, "b", "2"))

	require.NoError(t, st.Delete(ctx, "a", "missing"))

	_, err = st.Get(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)

	value, err := st.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "2", value)

	// deleting from an empty file is a no-op
	empty, err := NewKVStore(filepath.Join(t.TempDir(), "empty.json"))
	require.NoError(t, err)
	require.NoError(t, empty.Delete(ctx, "a"))
}

func TestKVStore_CorruptFileReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	st, err := NewKVStore(path)
	require.NoError(t, err)

	_, err = st.Get(ctx, "oauth_token")
	require.ErrorIs(t, err, store.ErrNotFound)

	// writing repairs the file
	require.NoError(t, st.Set(ctx, "oauth_token", "x"))
	value, err := st.Get(ctx, "oauth_token")
	require.NoError(t, err)
	require.Equal(t, "x", value)
}

func TestKVStore_Closed(t *testing.T) {
	st, err := NewKVStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.Get(context.Background(), "a")
	require.ErrorIs(t, err, store.ErrClosed)
}
