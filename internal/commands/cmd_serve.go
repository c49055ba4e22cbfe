package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/workboard/internal/server"
	"github.com/colonyops/workboard/internal/workboard"
)

type ServeCmd struct {
	flags *Flags
	app   *workboard.App
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *workboard.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the review board web UI",
		UsageText: "workboard serve",
		Description: `Starts the local web server for the review board.

Each page load refreshes the board against GitHub (within cache lifetimes)
and renders every tracked pull request with its triage actions.`,
		Action: cmd.run,
	})

	return app
}

// Run starts the server. Exposed so the root command can default to serving.
func (cmd *ServeCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	srv, err := server.New(cmd.app, log.With().Str("component", "server").Logger())
	if err != nil {
		return fmt.Errorf("setup server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.Root().Writer, "Serving review board on http://%s\n", cmd.app.Config.Server.Listen)
	return srv.ListenAndServe(ctx)
}
