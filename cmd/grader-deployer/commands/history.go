package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/di"
	"github.com/savaki/grader-deployer/internal/services"
	"github.com/urfave/cli/v2"
)

// HistoryCommand returns the history command for listing recorded releases
func HistoryCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent releases per target",
		Description: `Lists releases recorded in the DynamoDB table named by history_table,
newest first.

Examples:
  grader-deployer history
  grader-deployer history --target main --limit 5`,
		Flags: []cli.Flag{
			targetFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum releases shown per target; 0 shows all",
				Value:   10,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, container, err := setup(c, opts)
			if err != nil {
				return err
			}

			targets, err := resolveTargets(c, cfg, container)
			if err != nil {
				return err
			}

			releases, err := di.Get[*services.ReleaseService](container)
			if err != nil {
				return err
			}

			history, err := releases.History(c.Context, targets, c.Int("limit"))
			if err != nil {
				return err
			}

			logger.Debug().Int("releases", len(history)).Msg("History loaded")

			w := c.App.Writer
			if len(history) == 0 {
				fmt.Fprintln(w, "No releases recorded")
				return nil
			}

			fmt.Fprintf(w, "%-20s %-28s %-8s %-8s %s\n", "CREATED", "RELEASE", "STATUS", "VERSION", "TARGET")
			fmt.Fprintln(w, strings.Repeat("-", 100))
			for _, h := range history {
				fmt.Fprintf(w, "%-20s %-28s %-8s %-8s %s\n",
					h.CreatedAt.Format("2006-01-02 15:04:05"),
					h.ReleaseID,
					h.Status,
					h.Version,
					h.Target,
				)
				if h.Error != "" {
					fmt.Fprintf(w, "    error: %s\n", h.Error)
				}
			}
			return nil
		},
	}
}
