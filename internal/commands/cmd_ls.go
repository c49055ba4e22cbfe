package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/workboard/internal/workboard"
)

type LsCmd struct {
	flags *Flags
	app   *workboard.App

	// flags
	jsonOutput bool
	noRefresh  bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *workboard.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List tracked pull requests",
		UsageText: "workboard ls [--json] [--no-refresh]",
		Description: `Displays a table of tracked pull requests in board order.

By default a refresh cycle runs first; --no-refresh lists the stored state
without touching GitHub.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "no-refresh",
				Usage:       "list stored state without refreshing",
				Destination: &cmd.noRefresh,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	svc := cmd.app.Service

	if !cmd.noRefresh {
		if err := svc.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}

	items, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list board: %w", err)
	}

	if len(items) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No pull requests tracked\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return fmt.Errorf("encode item: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPO\tSTATUS\tUPDATED\tTITLE\tURL")
	for _, item := range items {
		updated := ""
		if item.Remote.UpdatedAt != 0 {
			updated = time.Unix(item.Remote.UpdatedAt, 0).Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.Remote.Repo, item.Board.Status, updated, item.Remote.Title, item.URL)
	}
	_ = w.Flush()

	return nil
}
