package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/wolfeidau/calendash/cmd/calendash/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode." env:"CALENDASH_DEBUG"`
		Version kong.VersionFlag

		Serve    commands.ServeCmd    `cmd:"" help:"Run the dashboard server"`
		Login    commands.LoginCmd    `cmd:"" help:"Sign in with Google (or the demo account in mock mode)"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Sign out and remove the stored session"`
		Status   commands.StatusCmd   `cmd:"" help:"Show the stored session"`
		Meetings commands.MeetingsCmd `cmd:"" help:"List meetings for the signed in user"`
		Refresh  commands.RefreshCmd  `cmd:"" help:"Refresh the stored access token"`
	}
)

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("calendash"),
		kong.Description("Calendar dashboard with Google sign in."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
