package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/calendash/internal/logger"
	"github.com/wolfeidau/calendash/internal/login"
	"github.com/wolfeidau/calendash/internal/models"
)

type LoginCmd struct {
	Timeout time.Duration `help:"how long to wait for the browser callback" default:"5m"`

	App AppFlags `embed:""`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	rt, err := c.App.build(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	// the listener has to be up before the user can follow the link
	var (
		ln  net.Listener
		cbu *url.URL
	)
	if !c.App.MockAuth {
		cbu, err = url.Parse(c.App.RedirectURI)
		if err != nil {
			return fmt.Errorf("invalid redirect URI: %w", err)
		}
		ln, err = net.Listen("tcp", cbu.Host)
		if err != nil {
			return fmt.Errorf("failed to listen for the OAuth callback on %s: %w", cbu.Host, err)
		}
		defer ln.Close()
	}

	begin, err := rt.shell.Login(ctx)
	if err != nil {
		return err
	}

	if begin.Session != nil {
		printLoggedIn(begin.Session)
		return nil
	}

	fmt.Println("Open the following URL in your browser to sign in:")
	fmt.Println()
	fmt.Println("  " + begin.RedirectURL)
	fmt.Println()

	sess, err := c.awaitCallback(ctx, rt, ln, cbu.Path)
	if err != nil {
		return err
	}

	printLoggedIn(sess)
	return nil
}

type callbackResult struct {
	session *models.Session
	err     error
}

// awaitCallback serves a single OAuth redirect on ln and completes the login with it.
func (c *LoginCmd) awaitCallback(ctx context.Context, rt *runtime, ln net.Listener, path string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if path == "" {
		path = "/"
	}

	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		sess, err := rt.shell.HandleCallback(r.Context(), login.CallbackFromQuery(r.URL.Query()))
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("OAuth callback failed")
			http.Error(w, "Sign in failed, return to the terminal for details.", http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in, you can close this window.")
		}

		select {
		case results <- callbackResult{session: sess, err: err}:
		default:
		}
	})

	srv := configureHTTPServer(ln.Addr().String(), mux)
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Callback listener failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.session, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for the OAuth callback: %w", ctx.Err())
	}
}

func printLoggedIn(sess *models.Session) {
	fmt.Printf("Logged in as %s <%s>\n", sess.Identity.Name, sess.Identity.Email)
	fmt.Printf("Token expires at %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
}
