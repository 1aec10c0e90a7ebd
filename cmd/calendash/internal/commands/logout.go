package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/calendash/internal/logger"
)

type LogoutCmd struct {
	App AppFlags `embed:""`
}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	rt, err := c.App.build(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.shell.Logout(ctx); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Println("Logged out")
	return nil
}
