package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/calendash/internal/models"
)

func testToken() *models.Token {
	return &models.Token{AccessToken: "access-123", TokenType: "Bearer", ExpiresIn: 3600}
}

func TestGenericSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/events", r.URL.Path)
		assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{
			"id":"evt-1",
			"title":"Roadmap",
			"description":"Plan the quarter",
			"startTime":"2026-05-21T09:00:00Z",
			"endTime":"2026-05-21T10:00:00Z",
			"location":"Room 1",
			"attendees":[
				{"name":"Ada","email":"ada@example.com","status":"accepted"},
				{"name":"Bob","email":"bob@example.com","status":"tentative"}
			]
		}]}`)
	}))
	defer srv.Close()

	src := NewGenericSource(srv.URL+"/", nil)

	meetings, err := src.Fetch(context.Background(), testToken())
	require.NoError(t, err)
	require.Len(t, meetings, 1)

	m := meetings[0]
	require.Equal(t, "evt-1", m.ID)
	require.Equal(t, "Roadmap", m.Title)
	require.Equal(t, "Plan the quarter", m.Description)
	require.Equal(t, "Room 1", m.Location)
	require.Equal(t, time.Date(2026, 5, 21, 9, 0, 0, 0, time.UTC), m.Start.UTC())
	require.Equal(t, time.Date(2026, 5, 21, 10, 0, 0, 0, time.UTC), m.End.UTC())
	require.Equal(t, []models.Attendee{
		{Name: "Ada", Email: "ada@example.com", Status: models.AttendeeAccepted},
		{Name: "Bob", Email: "bob@example.com", Status: models.AttendeePending},
	}, m.Attendees)
}

func TestGenericSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			checkFn: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			checkFn: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
				require.NotErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"items":[`,
			checkFn: func(t *testing.T, err error) {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		{
			name:   "missing items",
			status: http.StatusOK,
			body:   `{"meetings":[]}`,
			checkFn: func(t *testing.T, err error) {
				require.ErrorIs(t, err, errMissingItems)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGenericSource(srv.URL, nil).Fetch(context.Background(), testToken())
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestGenericSource_RequiresToken(t *testing.T) {
	src := NewGenericSource("http://127.0.0.1:1", nil)

	_, err := src.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoToken)

	_, err = src.Fetch(context.Background(), &models.Token{})
	require.ErrorIs(t, err, ErrNoToken)
}

func TestGenericSource_CacheIsPerToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.Header.Get("Authorization") {
		case "Bearer alice", "Bearer bob":
			w.Header().Set("Cache-Control", "max-age=300")
			fmt.Fprintf(w, `{"items":[{"id":%q,"title":"Sync","startTime":"2026-05-21T09:00:00Z","endTime":"2026-05-21T10:00:00Z"}]}`,
				r.Header.Get("Authorization"))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	f := newTestFailSoft(NewGenericSource(srv.URL, nil))
	ctx := context.Background()

	alice := f.FetchMeetings(ctx, &models.Token{AccessToken: "alice"})
	require.Equal(t, models.ProvenanceLive, alice.Source)
	require.Equal(t, "Bearer alice", alice.Meetings[0].ID)

	bob := f.FetchMeetings(ctx, &models.Token{AccessToken: "bob"})
	require.Equal(t, models.ProvenanceLive, bob.Source)
	require.Equal(t, "Bearer bob", bob.Meetings[0].ID)

	// served from alice's cache
	alice = f.FetchMeetings(ctx, &models.Token{AccessToken: "alice"})
	require.Equal(t, "Bearer alice", alice.Meetings[0].ID)
	require.Equal(t, int32(2), hits.Load())

	// a token the endpoint rejects never sees another token's cached events
	revoked := f.FetchMeetings(ctx, &models.Token{AccessToken: "revoked"})
	requireSyntheticShape(t, revoked)
	require.ErrorIs(t, revoked.Fallback, ErrUnauthorized)
	require.Equal(t, int32(3), hits.Load())
}
