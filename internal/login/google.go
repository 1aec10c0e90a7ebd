package login

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/telemetry"
)

// requestTimeout bounds the token exchange and the userinfo request.
const requestTimeout = 10 * time.Second

// GoogleConfig configures the Google provider. The URL overrides exist so tests
// can point the flow at local servers.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	APIEndpoint string // base URL for the userinfo API

	HTTPClient *http.Client
}

// Google runs the authorization code flow against Google.
type Google struct {
	config      *oauth2.Config
	apiEndpoint string
	httpClient  *http.Client
	states      StateStore
	now         func() time.Time
	flow        flow
}

func NewGoogle(cfg GoogleConfig, states StateStore) (*Google, error) {
	if cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("client ID and redirect URL are required")
	}
	if states == nil {
		return nil, fmt.Errorf("state store is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiEndpoint: cfg.APIEndpoint,
		httpClient:  cfg.HTTPClient,
		states:      states,
		now:         time.Now,
	}, nil
}

// Begin stores a fresh state and returns the Google consent URL.
func (g *Google) Begin(ctx context.Context) (*Begin, error) {
	g.flow.set(FlowIdle)

	state := rand.Text()
	if err := g.states.SaveState(ctx, state); err != nil {
		g.flow.set(FlowFailed)
		return nil, fmt.Errorf("failed to save oauth state: %w", err)
	}

	log.Debug().Msg("Initiating Google OAuth flow")

	redirect := g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	g.flow.set(FlowAwaitingCallback)

	return &Begin{RedirectURL: redirect}, nil
}

// Complete validates the callback, exchanges the code and loads the user's identity.
// The stored state is consumed whatever the outcome.
func (g *Google) Complete(ctx context.Context, cb Callback) (*models.Session, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "login.Complete")
	defer span.End()

	sess, err := g.complete(ctx, cb)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
	}
	telemetry.GetMetrics().LoginTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	return sess, g.flow.finish(err)
}

func (g *Google) complete(ctx context.Context, cb Callback) (*models.Session, error) {
	stored, ok := g.states.TakeState(ctx)

	if cb.Error != "" {
		log.Warn().Str("error", cb.Error).Msg("OAuth provider returned an error")
		return nil, &ProviderError{Code: cb.Error, Description: cb.ErrorDescription}
	}

	if !ok || cb.State == "" || cb.State != stored {
		log.Warn().Msg("OAuth callback state mismatch")
		return nil, ErrCSRFMismatch
	}

	if cb.Code == "" {
		log.Warn().Msg("OAuth callback missing code")
		return nil, ErrMissingAuthorizationCode
	}

	log.Debug().Msg("OAuth state validated successfully")

	tok, err := g.exchange(ctx, cb.Code)
	if err != nil {
		return nil, err
	}

	identity, err := g.userInfo(ctx, tok)
	if err != nil {
		return nil, &UserInfoFetchError{Err: err}
	}

	issuedAt := g.now()
	token := tokenFromOAuth2(tok, issuedAt)

	log.Info().Str("user", identity.Email).Msg("User authenticated successfully")

	return &models.Session{
		Identity:  *identity,
		Token:     *token,
		ExpiresAt: token.ExpiryFrom(issuedAt),
	}, nil
}

func (g *Google) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(g.clientContext(ctx), requestTimeout)
	defer cancel()

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		exchangeErr := &TokenExchangeError{Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			exchangeErr.StatusCode = retrieveErr.Response.StatusCode
		}
		log.Warn().Err(err).Int("status", exchangeErr.StatusCode).Msg("Failed to exchange OAuth code for token")
		return nil, exchangeErr
	}

	log.Debug().Msg("OAuth token exchange successful")

	return tok, nil
}

func (g *Google) userInfo(ctx context.Context, tok *oauth2.Token) (*models.Identity, error) {
	// Add timeout to prevent hanging on a slow userinfo endpoint
	ctx, cancel := context.WithTimeout(g.clientContext(ctx), requestTimeout)
	defer cancel()

	opts := []option.ClientOption{option.WithHTTPClient(g.config.Client(ctx, tok))}
	if g.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.apiEndpoint))
	}

	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch user info from Google")
		return nil, err
	}

	return &models.Identity{
		ID:         info.Id,
		Email:      info.Email,
		Name:       info.Name,
		Picture:    info.Picture,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}

// Refresh runs the refresh_token grant. The returned token keeps the existing
// refresh token when Google does not rotate it.
func (g *Google) Refresh(ctx context.Context, token *models.Token) (*models.Token, error) {
	outcome := "failure"
	defer func() {
		telemetry.GetMetrics().TokenRefreshTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	if token == nil || token.RefreshToken == "" {
		return nil, &RefreshError{Err: ErrNoRefreshToken}
	}

	ctx, cancel := context.WithTimeout(g.clientContext(ctx), requestTimeout)
	defer cancel()

	// an already expired token forces the source to refresh
	src := g.config.TokenSource(ctx, &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})

	tok, err := src.Token()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh OAuth token")
		return nil, &RefreshError{Err: err}
	}

	outcome = "success"
	refreshed := tokenFromOAuth2(tok, g.now())
	if refreshed.Scope == "" {
		refreshed.Scope = token.Scope
	}
	return refreshed, nil
}

func (g *Google) State() FlowState {
	return g.flow.get()
}

func (g *Google) clientContext(ctx context.Context) context.Context {
	if g.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// tokenFromOAuth2 converts a token endpoint response into the stored token shape.
func tokenFromOAuth2(tok *oauth2.Token, issuedAt time.Time) *models.Token {
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(tok.Expiry.Sub(issuedAt).Round(time.Second) / time.Second)
	}

	out := &models.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		ExpiresIn:    expiresIn,
		RefreshToken: tok.RefreshToken,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = idToken
	}
	return out
}
