package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/workboard/internal/workboard"
)

type SweepCmd struct {
	flags *Flags
	app   *workboard.App
}

// NewSweepCmd creates a new sweep command
func NewSweepCmd(flags *Flags, app *workboard.App) *SweepCmd {
	return &SweepCmd{flags: flags, app: app}
}

// Register adds the sweep command to the application
func (cmd *SweepCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sweep",
		Usage:     "Delete expired cache entries",
		UsageText: "workboard sweep",
		Description: `Removes cache entries whose TTL has passed.

Expired entries are normally reclaimed lazily when read; sweep exists to
reclaim disk space for entries nothing reads anymore.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *SweepCmd) run(ctx context.Context, c *cli.Command) error {
	n, err := cmd.app.Cache.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep cache: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "Removed %d expired cache entries\n", n)
	return nil
}
