package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/calendash/internal/logger"
)

type RefreshCmd struct {
	App AppFlags `embed:""`
}

func (c *RefreshCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	rt, err := c.App.build(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.restore(ctx); err != nil {
		return err
	}

	sess, err := rt.shell.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	fmt.Printf("Token refreshed, expires at %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
