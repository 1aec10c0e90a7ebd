package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/calendash/internal/app"
	"github.com/wolfeidau/calendash/internal/calendar"
	"github.com/wolfeidau/calendash/internal/client"
	"github.com/wolfeidau/calendash/internal/login"
	"github.com/wolfeidau/calendash/internal/session"
	"github.com/wolfeidau/calendash/internal/store"
	badgerstore "github.com/wolfeidau/calendash/internal/store/badger"
	filestore "github.com/wolfeidau/calendash/internal/store/file"
	memorystore "github.com/wolfeidau/calendash/internal/store/memory"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// AppFlags configure the session store, the login provider and the calendar
// source. Every command embeds them.
type AppFlags struct {
	// Store configuration
	Store     string `help:"session store backend (file, badger or memory)" default:"file" enum:"file,badger,memory" env:"CALENDASH_STORE"`
	StorePath string `help:"file or directory for the session store, defaults to the XDG data dir" env:"CALENDASH_STORE_PATH"`

	// Google OAuth configuration
	ClientID     string        `help:"Google OAuth client ID" default:"demo-client-id" env:"CALENDASH_GOOGLE_CLIENT_ID"`
	ClientSecret string        `help:"Google OAuth client secret" env:"CALENDASH_GOOGLE_CLIENT_SECRET"`
	RedirectURI  string        `help:"OAuth redirect URI" default:"http://localhost:5174/auth/callback" env:"CALENDASH_GOOGLE_REDIRECT_URI"`
	Scopes       []string      `help:"OAuth scopes to request" default:"openid,profile,email,https://www.googleapis.com/auth/calendar.readonly,https://www.googleapis.com/auth/calendar.events.readonly" env:"CALENDASH_GOOGLE_SCOPES"`
	MockAuth     bool          `help:"use the demo account instead of Google" default:"true" negatable:"" env:"CALENDASH_USE_MOCK_AUTH"`
	MockLatency  time.Duration `help:"simulated latency of the demo account login" default:"1.5s" env:"CALENDASH_MOCK_LATENCY"`

	// Calendar configuration
	CalendarSource string        `help:"calendar source (auto, google, generic or synthetic)" default:"auto" enum:"auto,google,generic,synthetic" env:"CALENDASH_CALENDAR_SOURCE"`
	APIEndpoint    string        `help:"base URL of a generic calendar endpoint" env:"CALENDASH_API_ENDPOINT"`
	FetchTimeout   time.Duration `help:"timeout for live calendar fetches" default:"10s" env:"CALENDASH_FETCH_TIMEOUT"`
	SyntheticDelay time.Duration `help:"simulated latency of the demo calendar" default:"1.5s" env:"CALENDASH_SYNTHETIC_DELAY"`
	CacheDir       string        `help:"disk cache for calendar responses, in memory when empty" env:"CALENDASH_CACHE_DIR"`
}

// runtime is the wired application for one command invocation.
type runtime struct {
	shell    *app.Shell
	sessions *session.Store
	provider login.Provider
	durable  store.KVStore
}

func (r *runtime) Close() {
	if err := r.durable.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close session store")
	}
}

func (f *AppFlags) build(tracing bool) (*runtime, error) {
	durable, err := f.openStore()
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(durable, memorystore.NewKVStore())

	provider, err := f.provider(sessions)
	if err != nil {
		_ = durable.Close()
		return nil, err
	}

	live, err := f.liveSource(tracing)
	if err != nil {
		_ = durable.Close()
		return nil, err
	}

	cal := calendar.NewFailSoft(live,
		calendar.WithTimeout(f.FetchTimeout),
		calendar.WithSynthetic(calendar.NewSyntheticSource(f.SyntheticDelay)),
	)

	return &runtime{
		shell:    app.NewShell(sessions, provider, cal),
		sessions: sessions,
		provider: provider,
		durable:  durable,
	}, nil
}

func (f *AppFlags) openStore() (store.KVStore, error) {
	switch f.Store {
	case "memory":
		log.Debug().Msg("Using in-memory session store")
		return memorystore.NewKVStore(), nil
	case "badger":
		dir := f.StorePath
		if dir == "" {
			dir = badgerstore.DefaultDir()
		}
		log.Debug().Str("dir", dir).Msg("Using badger session store")
		return badgerstore.NewKVStore(dir)
	default:
		path := f.StorePath
		if path == "" {
			path = filestore.DefaultPath()
		}
		log.Debug().Str("path", path).Msg("Using file session store")
		return filestore.NewKVStore(path)
	}
}

func (f *AppFlags) provider(sessions *session.Store) (login.Provider, error) {
	if f.MockAuth {
		return login.NewMock(
			login.WithMockLatency(f.MockLatency),
			login.WithMockScopes(f.Scopes),
		), nil
	}

	g, err := login.NewGoogle(login.GoogleConfig{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		RedirectURL:  f.RedirectURI,
		Scopes:       f.Scopes,
	}, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to configure Google login: %w", err)
	}
	return g, nil
}

// liveSource picks the calendar source. In auto mode the demo account only ever
// sees synthetic data, otherwise a configured endpoint wins over Google.
func (f *AppFlags) liveSource(tracing bool) (calendar.Source, error) {
	httpClient := client.NewCachingHTTPClient(client.Options{
		CacheDir: f.CacheDir,
		Timeout:  f.FetchTimeout,
		Tracing:  tracing,
	})

	kind := f.CalendarSource
	if kind == "auto" {
		switch {
		case f.MockAuth:
			kind = "synthetic"
		case f.APIEndpoint != "":
			kind = "generic"
		default:
			kind = "google"
		}
	}

	switch kind {
	case "synthetic":
		return nil, nil
	case "generic":
		if f.APIEndpoint == "" {
			return nil, errors.New("generic calendar source requires --api-endpoint or CALENDASH_API_ENDPOINT")
		}
		return calendar.NewGenericSource(f.APIEndpoint, httpClient), nil
	default:
		return calendar.NewGoogleSource(calendar.WithGoogleHTTPClient(httpClient)), nil
	}
}

// restore loads the stored session, mapping absent sessions to a friendly error.
func (r *runtime) restore(ctx context.Context) error {
	_, err := r.shell.Restore(ctx)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return errors.New("not logged in, run `calendash login` first")
	case errors.Is(err, session.ErrSessionExpired):
		return errors.New("session expired, run `calendash login` again")
	}
	return err
}
