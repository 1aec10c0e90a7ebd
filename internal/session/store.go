package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/store"
)

// Storage keys shared with the browser build of the dashboard.
const (
	KeyToken  = "oauth_token"
	KeyUser   = "user_info"
	KeyExpiry = "token_expiry"
	KeyState  = "oauth_state"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
)

// Store persists the authenticated session in a durable key-value store and the
// OAuth CSRF state in an ephemeral one.
type Store struct {
	durable   store.KVStore
	ephemeral store.KVStore
	now       func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store over the given durable and ephemeral stores.
func NewStore(durable, ephemeral store.KVStore, opts ...Option) *Store {
	s := &Store{
		durable:   durable,
		ephemeral: ephemeral,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the token, identity and computed expiry timestamp.
func (s *Store) Save(ctx context.Context, token *models.Token, identity *models.Identity) error {
	if token == nil || identity == nil {
		return errors.New("token and identity are required")
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	userJSON, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	expiry := token.ExpiryFrom(s.now())

	if err := s.durable.Set(ctx, KeyToken, string(tokenJSON)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.durable.Set(ctx, KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	if err := s.durable.Set(ctx, KeyExpiry, strconv.FormatInt(expiry.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("failed to save expiry: %w", err)
	}

	log.Debug().Str("user", identity.Email).Time("expires_at", expiry).Msg("Session saved")

	return nil
}

// Load reconstructs the session from durable storage.
//
// It returns ErrNoSession when any key is missing or unreadable and ErrSessionExpired
// when the stored expiry has passed. Unreadable and expired sessions are purged.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	tokenStr, err := s.durable.Get(ctx, KeyToken)
	if err != nil {
		return nil, s.absent(ctx, err)
	}
	userStr, err := s.durable.Get(ctx, KeyUser)
	if err != nil {
		return nil, s.absent(ctx, err)
	}
	expiryStr, err := s.durable.Get(ctx, KeyExpiry)
	if err != nil {
		return nil, s.absent(ctx, err)
	}

	expiryMillis, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		log.Debug().Err(err).Msg("Invalid stored token expiry")
		s.purge(ctx)
		return nil, ErrNoSession
	}
	expiresAt := time.UnixMilli(expiryMillis)

	// Check expiration
	if s.now().After(expiresAt) {
		log.Debug().Time("expires_at", expiresAt).Msg("Session expired")
		s.purge(ctx)
		return nil, ErrSessionExpired
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(tokenStr), &sess.Token); err != nil {
		log.Debug().Err(err).Msg("Failed to unmarshal stored token")
		s.purge(ctx)
		return nil, ErrNoSession
	}
	if err := json.Unmarshal([]byte(userStr), &sess.Identity); err != nil {
		log.Debug().Err(err).Msg("Failed to unmarshal stored identity")
		s.purge(ctx)
		return nil, ErrNoSession
	}
	sess.ExpiresAt = expiresAt

	return &sess, nil
}

// IsAuthenticated reports whether a valid session is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, err := s.Load(ctx)
	return err == nil
}

// Clear removes the durable session keys and the ephemeral CSRF state.
// Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.durable.Delete(ctx, KeyToken, KeyUser, KeyExpiry); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := s.ephemeral.Delete(ctx, KeyState); err != nil {
		return fmt.Errorf("failed to clear oauth state: %w", err)
	}
	return nil
}

// SaveState stores the CSRF state for an in-progress authorization.
func (s *Store) SaveState(ctx context.Context, state string) error {
	if err := s.ephemeral.Set(ctx, KeyState, state); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// TakeState returns the stored CSRF state and erases it.
// The second result is false when no state was stored.
func (s *Store) TakeState(ctx context.Context) (string, bool) {
	state, err := s.ephemeral.Get(ctx, KeyState)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Msg("Failed to read oauth state")
		}
		return "", false
	}

	if err := s.ephemeral.Delete(ctx, KeyState); err != nil {
		log.Warn().Err(err).Msg("Failed to erase oauth state")
	}

	return state, true
}

// absent maps a read failure to ErrNoSession, purging partial state.
func (s *Store) absent(ctx context.Context, err error) error {
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("Failed to read session, treating as logged out")
	}
	s.purge(ctx)
	return ErrNoSession
}

func (s *Store) purge(ctx context.Context) {
	if err := s.durable.Delete(ctx, KeyToken, KeyUser, KeyExpiry); err != nil {
		log.Warn().Err(err).Msg("Failed to purge session")
	}
}
