package server

import (
	"net/http"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/wolfeidau/calendash/internal/app"
	httpmiddleware "github.com/wolfeidau/calendash/internal/http"
)

// Config controls the HTTP surface.
type Config struct {
	// CORSOrigins may call /api/ from a browser.
	CORSOrigins []string
	// Tracing wraps the handler with otelhttp.
	Tracing bool
	// RefreshRate and RefreshBurst limit POST /api/meetings/refresh.
	RefreshRate  rate.Limit
	RefreshBurst int
}

// DefaultConfig allows one meeting refresh every five seconds with a small burst.
func DefaultConfig() Config {
	return Config{
		CORSOrigins:  []string{"http://localhost:5174"},
		RefreshRate:  rate.Limit(0.2),
		RefreshBurst: 3,
	}
}

// Server exposes the Shell over HTTP.
type Server struct {
	shell   *app.Shell
	cfg     Config
	log     zerolog.Logger
	refresh *rate.Limiter
}

func New(shell *app.Shell, cfg Config, log zerolog.Logger) *Server {
	if cfg.RefreshBurst <= 0 {
		cfg.RefreshBurst = 1
	}
	if cfg.RefreshRate == 0 {
		cfg.RefreshRate = rate.Inf
	}

	return &Server{
		shell:   shell,
		cfg:     cfg,
		log:     log,
		refresh: rate.NewLimiter(cfg.RefreshRate, cfg.RefreshBurst),
	}
}

// Handler returns the routed handler. Browser routes get CSRF protection and
// /api/ routes get CORS.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)

	protection := csrf.New()
	r.Group(func(r chi.Router) {
		r.Use(protection.Handler)

		r.Get("/", s.handleIndex)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.handleLogin)
			r.Get("/callback", s.handleCallback)
			r.Post("/logout", s.handleLogout)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(withCORS(s.cfg.CORSOrigins))

		r.Get("/session", s.handleSession)
		r.Get("/meetings", s.handleMeetings)
		r.Post("/meetings/refresh", s.handleRefreshMeetings)
	})

	if s.cfg.Tracing {
		return otelhttp.NewHandler(r, "calendash")
	}
	return r
}

// withCORS allows the dashboard front end to call the API with cookies.
func withCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler
}
