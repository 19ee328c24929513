package main

import (
	"context"
	"errors"
	"os"

	"github.com/savaki/grader-deployer/cmd/grader-deployer/commands"
	"github.com/savaki/grader-deployer/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger(false, false)
	ctx := logger.WithContext(context.Background())

	app := commands.NewApp(&logger)
	if err := app.RunContext(ctx, os.Args); err != nil {
		var exitErr cli.ExitCoder
		if !errors.As(err, &exitErr) {
			logger.Error().Err(err).Msg("Application error")
		}
		os.Exit(1)
	}
}
