package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/calendash/internal/app"
	"github.com/wolfeidau/calendash/internal/login"
	"github.com/wolfeidau/calendash/internal/meetings"
	"github.com/wolfeidau/calendash/internal/models"
)

const loginRetryPath = "/auth/login"

type errorResponse struct {
	Error string `json:"error"`
	Retry string `json:"retry,omitempty"`
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *models.Identity `json:"user,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

type meetingsResponse struct {
	Success   bool              `json:"success"`
	Data      []models.Meeting  `json:"data"`
	Source    models.Provenance `json:"source"`
	Stats     meetings.Stats    `json:"stats"`
	Upcoming  []models.Meeting  `json:"upcoming"`
	Past      []models.Meeting  `json:"past"`
	FetchedAt time.Time         `json:"fetched_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><title>calendash</title></head>
<body>
{{if .}}
<p>Signed in as {{.Identity.Name}} ({{.Identity.Email}})</p>
<p><a href="/api/meetings">Meetings</a></p>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
{{else}}
<p><a href="/auth/login">Sign in with Google</a></p>
{{end}}
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.shell.Session()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, sess); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render index")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	begin, err := s.shell.Login(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("login failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Retry: loginRetryPath})
		return
	}

	if begin.RedirectURL != "" {
		http.Redirect(w, r, begin.RedirectURL, http.StatusFound)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cb := login.CallbackFromQuery(r.URL.Query())

	sess, err := s.shell.HandleCallback(r.Context(), cb)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("OAuth callback failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Retry: loginRetryPath})
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("user", sess.Identity.Email).Msg("User authenticated successfully")

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.shell.Logout(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("logout failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to clear session"})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.shell.Session()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &sess.Identity,
		ExpiresAt:     &sess.ExpiresAt,
	})
}

func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.shell.Session(); !ok {
		writeUnauthorized(w)
		return
	}

	if snap := s.shell.Meetings(); snap.Loaded() {
		writeJSON(w, http.StatusOK, newMeetingsResponse(snap))
		return
	}

	s.loadMeetings(w, r)
}

func (s *Server) handleRefreshMeetings(w http.ResponseWriter, r *http.Request) {
	if !s.refresh.Allow() {
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many refresh requests"})
		return
	}

	s.loadMeetings(w, r)
}

func (s *Server) loadMeetings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.shell.LoadMeetings(r.Context())
	if errors.Is(err, app.ErrSuperseded) {
		// answer with whatever the newer load publishes
		snap, err = s.shell.WaitMeetings(r.Context())
	}

	switch {
	case errors.Is(err, app.ErrNotAuthenticated):
		writeUnauthorized(w)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load meetings")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load meetings"})
		return
	}

	writeJSON(w, http.StatusOK, newMeetingsResponse(snap))
}

func newMeetingsResponse(snap app.Snapshot) meetingsResponse {
	return meetingsResponse{
		Success:   true,
		Data:      nonNil(snap.View.All),
		Source:    snap.Source,
		Stats:     snap.View.Stats,
		Upcoming:  nonNil(snap.View.Upcoming),
		Past:      nonNil(snap.View.Past),
		FetchedAt: snap.FetchedAt,
	}
}

func nonNil(m []models.Meeting) []models.Meeting {
	if m == nil {
		return []models.Meeting{}
	}
	return m
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated", Retry: loginRetryPath})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
