package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/di"
	"github.com/savaki/grader-deployer/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

// DeployCommand returns the deploy command, which runs the whole pipeline
func DeployCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:    "deploy",
		Aliases: []string{"d"},
		Usage:   "Compile, package and publish the grader (the default command)",
		Description: `Runs every stage in order. Each stage runs only if the previous one succeeded:
  1. sync     copy shared sources from the mobius directory (only with --sync)
  2. compile  tsc -p . ; any output containing "error" stops the run
  3. package  zip dist/ into zipped_file/zip_grader.zip
  4. publish  UpdateFunctionCode on each target, in order; the first failure stops the run

Examples:
  # Deploy to the dev function
  grader-deployer deploy

  # Deploy to dev then main
  grader-deployer deploy --target dev --target main

  # Sync sources before building
  grader-deployer deploy --sync`,
		Flags: deployFlags(),
		Action: func(c *cli.Context) error {
			return deployAction(c, logger, opts)
		},
	}
}

func deployFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "sync",
			Aliases: []string{"s"},
			Usage:   "Copy shared sources from the mobius directory before compiling",
		},
		targetFlag(),
	}
}

func deployAction(c *cli.Context, logger *zerolog.Logger, opts []di.Option) error {
	ctx := c.Context

	cfg, container, err := setup(c, opts)
	if err != nil {
		return err
	}

	targets, err := resolveTargets(c, cfg, container)
	if err != nil {
		return err
	}

	orch, err := di.Get[*orchestrator.Orchestrator](container)
	if err != nil {
		return err
	}

	logger.Info().
		Bool("sync", c.Bool("sync")).
		Strs("targets", targets).
		Msg("Starting deploy")

	report, err := orch.Run(ctx, orchestrator.RunOptions{
		Sync:    c.Bool("sync"),
		Targets: targets,
	})
	if err != nil {
		logger.Error().Str("stage", string(report.Stage)).Msg("Deploy stopped")
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Release %s (%d bytes, sha256 %s)\n", report.Release.ID, report.Release.Size, report.Release.CodeSHA256)
	if report.Release.Artifact != "" {
		fmt.Fprintf(w, "Archive copy: %s\n", report.Release.Artifact)
	}
	for _, result := range report.Results {
		fmt.Fprintf(w, "  ✓ %s (version %s)\n", result.Target, aws.ToString(result.Output.Version))
	}

	return nil
}
