package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/calendash/internal/app"
	"github.com/wolfeidau/calendash/internal/calendar"
	"github.com/wolfeidau/calendash/internal/meetings"
	"github.com/wolfeidau/calendash/internal/models"
	badgerstore "github.com/wolfeidau/calendash/internal/store/badger"
	filestore "github.com/wolfeidau/calendash/internal/store/file"
	memorystore "github.com/wolfeidau/calendash/internal/store/memory"
)

func testFlags(t *testing.T) AppFlags {
	t.Helper()
	return AppFlags{
		Store:          "memory",
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		RedirectURI:    "http://localhost:5174/auth/callback",
		Scopes:         []string{"openid", "email"},
		MockAuth:       true,
		CalendarSource: "auto",
		FetchTimeout:   time.Second,
	}
}

func TestLiveSource(t *testing.T) {
	tests := []struct {
		name     string
		mock     bool
		source   string
		endpoint string
		want     any
	}{
		{name: "auto mock is synthetic", mock: true, source: "auto", want: nil},
		{name: "auto with endpoint is generic", source: "auto", endpoint: "http://calendar.local", want: &calendar.GenericSource{}},
		{name: "auto without endpoint is google", source: "auto", want: &calendar.GoogleSource{}},
		{name: "explicit google in mock mode", mock: true, source: "google", want: &calendar.GoogleSource{}},
		{name: "explicit synthetic", source: "synthetic", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFlags(t)
			f.MockAuth = tt.mock
			f.CalendarSource = tt.source
			f.APIEndpoint = tt.endpoint

			src, err := f.liveSource(false)
			require.NoError(t, err)
			if tt.want == nil {
				require.Nil(t, src)
				return
			}
			require.IsType(t, tt.want, src)
		})
	}
}

func TestLiveSource_GenericRequiresEndpoint(t *testing.T) {
	f := testFlags(t)
	f.CalendarSource = "generic"

	_, err := f.liveSource(false)
	require.ErrorContains(t, err, "requires --api-endpoint")
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	f := testFlags(t)
	s, err := f.openStore()
	require.NoError(t, err)
	require.IsType(t, &memorystore.KVStore{}, s)
	require.NoError(t, s.Close())

	f.Store = "file"
	f.StorePath = filepath.Join(dir, "session.json")
	s, err = f.openStore()
	require.NoError(t, err)
	require.IsType(t, &filestore.KVStore{}, s)
	require.NoError(t, s.Close())

	f.Store = "badger"
	f.StorePath = filepath.Join(dir, "badger")
	s, err = f.openStore()
	require.NoError(t, err)
	require.IsType(t, &badgerstore.KVStore{}, s)
	require.NoError(t, s.Close())
}

func TestBuild_MockSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()

	f := testFlags(t)
	f.Store = "file"
	f.StorePath = filepath.Join(t.TempDir(), "session.json")

	rt, err := f.build(false)
	require.NoError(t, err)

	begin, err := rt.shell.Login(ctx)
	require.NoError(t, err)
	require.NotNil(t, begin.Session)
	rt.Close()

	rt, err = f.build(false)
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.restore(ctx))
	sess, ok := rt.shell.Session()
	require.True(t, ok)
	require.Equal(t, begin.Session.Identity.Email, sess.Identity.Email)
}

func TestRestore_NotLoggedIn(t *testing.T) {
	f := testFlags(t)

	rt, err := f.build(false)
	require.NoError(t, err)
	defer rt.Close()

	require.ErrorContains(t, rt.restore(context.Background()), "not logged in")
}

func TestBuild_RealLoginNeedsClientID(t *testing.T) {
	f := testFlags(t)
	f.MockAuth = false
	f.ClientID = ""

	_, err := f.build(false)
	require.Error(t, err)
}

func TestPrintMeetings(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	e := meetings.NewEnricher(meetings.WithClock(func() time.Time { return now }))
	snap := app.Snapshot{
		View:      meetings.Partition(e.Enrich(calendar.SyntheticMeetings(now))),
		Source:    models.ProvenanceSynthetic,
		FetchedAt: now,
	}

	var buf bytes.Buffer
	(&MeetingsCmd{}).printMeetings(&buf, snap)
	out := buf.String()
	require.Contains(t, out, "source: synthetic, total: 10, upcoming: 6, past: 4")
	require.Contains(t, out, "Upcoming:")
	require.Contains(t, out, "Past:")

	buf.Reset()
	(&MeetingsCmd{Upcoming: true}).printMeetings(&buf, snap)
	require.NotContains(t, buf.String(), "Past:")

	buf.Reset()
	(&MeetingsCmd{Past: true}).printMeetings(&buf, snap)
	require.NotContains(t, buf.String(), "Upcoming:")
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	sess := &models.Session{
		Identity:  models.Identity{Name: "Demo User", Email: "demo@example.com"},
		Token:     models.Token{Scope: "openid email", RefreshToken: "r"},
		ExpiresAt: now.Add(time.Hour),
	}

	var buf bytes.Buffer
	printStatus(&buf, sess, now)
	require.Contains(t, buf.String(), "Demo User <demo@example.com>")
	require.Contains(t, buf.String(), "in 1h0m0s")
	require.Contains(t, buf.String(), "Refresh:  available")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "Standup", truncate("Standup", 40))
	require.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// cuts on runes so multi-byte titles stay valid UTF-8
	got := truncate("Réunion d'équipe 日本語の会議のタイトルはとても長いです", 20)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, 20, utf8.RuneCountInString(got))
	require.Equal(t, "Réunion d'équipe ...", got)
}
