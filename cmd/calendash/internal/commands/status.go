package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/calendash/internal/logger"
	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/session"
)

type StatusCmd struct {
	App AppFlags `embed:""`
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	rt, err := c.App.build(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := rt.shell.Restore(ctx)
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrSessionExpired):
		fmt.Println("Not logged in")
		return nil
	case err != nil:
		return err
	}

	printStatus(os.Stdout, sess, time.Now())
	return nil
}

func printStatus(w io.Writer, sess *models.Session, now time.Time) {
	_, _ = fmt.Fprintf(w, "User:     %s <%s>\n", sess.Identity.Name, sess.Identity.Email)
	_, _ = fmt.Fprintf(w, "Scopes:   %s\n", sess.Token.Scope)
	_, _ = fmt.Fprintf(w, "Expires:  %s (in %s)\n",
		sess.ExpiresAt.Local().Format(time.RFC1123),
		sess.ExpiresAt.Sub(now).Truncate(time.Second))
	if sess.Token.RefreshToken != "" {
		_, _ = fmt.Fprintln(w, "Refresh:  available")
	} else {
		_, _ = fmt.Fprintln(w, "Refresh:  none")
	}
}
