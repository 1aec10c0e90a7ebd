package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/calendash/internal/calendar"
	"github.com/wolfeidau/calendash/internal/login"
	"github.com/wolfeidau/calendash/internal/meetings"
	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/session"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned by a LoadMeetings call replaced by a newer one.
	ErrSuperseded = errors.New("meeting load superseded by a newer request")
)

// Snapshot is the last published meeting list.
type Snapshot struct {
	View      meetings.View
	Source    models.Provenance
	FetchedAt time.Time
}

// Loaded reports whether a meeting list has been published.
func (s Snapshot) Loaded() bool {
	return !s.FetchedAt.IsZero()
}

// Shell owns the signed in session and the meeting list shown for it. All
// mutation goes through its methods and readers receive copies.
type Shell struct {
	sessions *session.Store
	provider login.Provider
	calendar *calendar.FailSoft
	now      func() time.Time

	mu          sync.Mutex
	session     *models.Session
	snapshot    Snapshot
	generation  uint64
	cancelFetch context.CancelFunc
	// changed is closed and replaced whenever a load is published or abandoned
	changed chan struct{}
}

type Option func(*Shell)

// WithClock overrides the clock used for expiry checks and fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Shell) {
		s.now = now
	}
}

func NewShell(sessions *session.Store, provider login.Provider, cal *calendar.FailSoft, opts ...Option) *Shell {
	s := &Shell{
		sessions: sessions,
		provider: provider,
		calendar: cal,
		now:      time.Now,
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a previously saved session into memory.
func (s *Shell) Restore(ctx context.Context) (*models.Session, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("user", sess.Identity.Email).Msg("session restored")

	return sess.Clone(), nil
}

// Login starts a login. Mock providers finish immediately and the session is
// saved, real providers return the URL the user must visit.
func (s *Shell) Login(ctx context.Context) (*login.Begin, error) {
	begin, err := s.provider.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin login: %w", err)
	}

	if begin.Session != nil {
		if err := s.hold(ctx, begin.Session); err != nil {
			return nil, err
		}
	}

	return begin, nil
}

// HandleCallback completes a login from the provider redirect.
func (s *Shell) HandleCallback(ctx context.Context, cb login.Callback) (*models.Session, error) {
	sess, err := s.provider.Complete(ctx, cb)
	if err != nil {
		return nil, err
	}

	if err := s.hold(ctx, sess); err != nil {
		return nil, err
	}

	return sess.Clone(), nil
}

// Logout drops the session from memory and storage and discards any meetings.
func (s *Shell) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.stopFetchLocked()
	s.session = nil
	s.snapshot = Snapshot{}
	s.mu.Unlock()

	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Session returns a copy of the current session. An expired session is
// reported as absent.
func (s *Shell) Session() (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.currentLocked()
	if sess == nil {
		return nil, false
	}
	return sess.Clone(), true
}

// RefreshToken exchanges the held refresh token for a new access token and saves it.
func (s *Shell) RefreshToken(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	sess := s.currentLocked()
	s.mu.Unlock()

	if sess == nil {
		return nil, ErrNotAuthenticated
	}

	tok, err := s.provider.Refresh(ctx, &sess.Token)
	if err != nil {
		return nil, err
	}

	if tok.RefreshToken == "" {
		tok.RefreshToken = sess.Token.RefreshToken
	}
	if tok.IDToken == "" {
		tok.IDToken = sess.Token.IDToken
	}

	refreshed := &models.Session{
		Identity:  sess.Identity,
		Token:     *tok,
		ExpiresAt: tok.ExpiryFrom(s.now()),
	}
	if err := s.hold(ctx, refreshed); err != nil {
		return nil, err
	}

	return refreshed.Clone(), nil
}

// LoadMeetings fetches and publishes the meeting list for the current session.
// Only the most recent call publishes; earlier calls still running are
// cancelled and return ErrSuperseded.
func (s *Shell) LoadMeetings(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	sess := s.currentLocked()
	if sess == nil {
		s.mu.Unlock()
		return Snapshot{}, ErrNotAuthenticated
	}

	s.stopFetchLocked()
	s.generation++
	gen := s.generation

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	token := sess.Token
	s.mu.Unlock()

	defer cancel()

	res := s.calendar.FetchMeetings(fetchCtx, &token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return Snapshot{}, ErrSuperseded
	}
	s.cancelFetch = nil

	s.snapshot = Snapshot{
		View:      meetings.Partition(res.Meetings),
		Source:    res.Source,
		FetchedAt: s.now(),
	}
	s.notifyLocked()

	zerolog.Ctx(ctx).Debug().
		Str("source", string(res.Source)).
		Int("total", s.snapshot.View.Stats.Total).
		Msg("meetings published")

	return cloneSnapshot(s.snapshot), nil
}

// Meetings returns the last published meeting list.
func (s *Shell) Meetings() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.snapshot)
}

// WaitMeetings returns the meeting list once no load is in flight. It is used
// by callers whose own LoadMeetings returned ErrSuperseded. When nothing has
// been loaded and nothing is in flight it loads the list itself.
func (s *Shell) WaitMeetings(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.currentLocked() == nil {
			s.mu.Unlock()
			return Snapshot{}, ErrNotAuthenticated
		}
		if s.cancelFetch == nil {
			if s.snapshot.Loaded() {
				snap := cloneSnapshot(s.snapshot)
				s.mu.Unlock()
				return snap, nil
			}
			s.mu.Unlock()
			return s.LoadMeetings(ctx)
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// hold saves sess and makes it the current session. The previous meeting list
// belongs to the old session and is discarded.
func (s *Shell) hold(ctx context.Context, sess *models.Session) error {
	if err := s.sessions.Save(ctx, &sess.Token, &sess.Identity); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.session
	s.session = sess.Clone()
	if previous == nil || previous.Identity.ID != sess.Identity.ID {
		s.stopFetchLocked()
		s.snapshot = Snapshot{}
	}

	return nil
}

func (s *Shell) currentLocked() *models.Session {
	if s.session == nil {
		return nil
	}
	if s.session.IsExpired(s.now()) {
		s.session = nil
		s.snapshot = Snapshot{}
		return nil
	}
	return s.session
}

// stopFetchLocked cancels the in-flight fetch and invalidates its generation.
func (s *Shell) stopFetchLocked() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.generation++
	s.notifyLocked()
}

func (s *Shell) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func cloneSnapshot(snap Snapshot) Snapshot {
	snap.View = meetings.View{
		All:      cloneMeetings(snap.View.All),
		Upcoming: cloneMeetings(snap.View.Upcoming),
		Past:     cloneMeetings(snap.View.Past),
		Stats:    snap.View.Stats,
	}
	return snap
}

func cloneMeetings(in []models.Meeting) []models.Meeting {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		out[i].Attendees = slices.Clone(in[i].Attendees)
	}
	return out
}
