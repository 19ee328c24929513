package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/di"
	"github.com/savaki/grader-deployer/internal/services"
	"github.com/urfave/cli/v2"
)

// WhoAmICommand returns the whoami command for checking the configured keys
func WhoAmICommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the AWS identity behind the configured access keys",
		Action: func(c *cli.Context) error {
			cfg, container, err := setup(c, opts)
			if err != nil {
				return err
			}

			identity, err := di.MustGet[*services.IdentityService](container).WhoAmI(c.Context)
			if err != nil {
				return err
			}

			logger.Debug().Str("region", cfg.Region).Msg("Caller identity resolved")

			w := c.App.Writer
			fmt.Fprintf(w, "Account: %s\n", identity.Account)
			fmt.Fprintf(w, "ARN:     %s\n", identity.ARN)
			fmt.Fprintf(w, "UserID:  %s\n", identity.UserID)
			fmt.Fprintf(w, "Region:  %s\n", cfg.Region)
			return nil
		},
	}
}
