package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/credentials"
	"github.com/urfave/cli/v2"
)

// InitCommand returns the init command for creating the credential file
func InitCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a credential file template",
		Description: `Writes an empty credential file (mode 0600) for you to fill in.
An existing file is never overwritten.

Examples:
  grader-deployer init
  grader-deployer init --mobius-directory ../mobius`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mobius-directory",
				Aliases: []string{"m"},
				Usage:   "Local checkout of the mobius project",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("credentials")
			if err := credentials.WriteTemplate(path, c.String("mobius-directory")); err != nil {
				return err
			}

			logger.Info().Str("path", path).Msg("Credential template written")

			w := c.App.Writer
			fmt.Fprintf(w, "Created %s\n", path)
			fmt.Fprintln(w, "Fill in aws_access_key_id and aws_secret_access_key with your own keys.")
			fmt.Fprintf(w, "DO NOT commit %s.\n", path)
			return nil
		},
	}
}
