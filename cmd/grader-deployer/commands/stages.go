package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/di"
	"github.com/savaki/grader-deployer/internal/orchestrator"
	"github.com/urfave/cli/v2"
)

// SyncCommand returns the sync command for copying shared sources
func SyncCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy shared sources from the mobius directory into src/",
		Description: `Copies each configured directory from the mobius project into the working
tree. Existing files are overwritten; files missing from the source are left alone.

The mobius directory is taken from --from, then source_root in the config file,
then mobius_directory in the credential file.

Examples:
  grader-deployer sync
  grader-deployer sync --from ../mobius`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "from",
				Aliases: []string{"f"},
				Usage:   "Root of the mobius project",
				EnvVars: []string{"MOBIUS_DIRECTORY"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			if from := c.String("from"); from != "" {
				cfg.SourceRoot = from
			}
			if cfg.SourceRoot == "" {
				creds, err := loadCredentials(c)
				if err != nil {
					return err
				}
				cfg.SourceRoot = creds.MobiusDirectory
			}

			container, err := newContainer(c, cfg, opts)
			if err != nil {
				return err
			}

			n, err := di.MustGet[*orchestrator.Orchestrator](container).Sync(c.Context)
			if err != nil {
				return err
			}

			logger.Info().Int("files", n).Str("from", cfg.SourceRoot).Msg("Sync complete")
			return nil
		},
	}
}

// BuildCommand returns the build command, which only runs the compiler
func BuildCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:    "build",
		Aliases: []string{"b"},
		Usage:   "Run the compiler without packaging or publishing",
		Action: func(c *cli.Context) error {
			cfg, container, err := setupLocal(c, opts)
			if err != nil {
				return err
			}

			result, err := di.MustGet[*orchestrator.Orchestrator](container).Compile(c.Context)
			if err != nil {
				return err
			}

			logger.Info().
				Str("command", cfg.Compiler.Command).
				Int("exit_code", result.ExitCode).
				Msg("Build complete")
			return nil
		},
	}
}

// PackageCommand returns the package command, which compiles and zips the output
func PackageCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:    "package",
		Aliases: []string{"p"},
		Usage:   "Compile and package the output directory without publishing",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-build",
				Usage: "Package the existing output directory without compiling",
			},
		},
		Action: func(c *cli.Context) error {
			_, container, err := setupLocal(c, opts)
			if err != nil {
				return err
			}

			orch := di.MustGet[*orchestrator.Orchestrator](container)
			if !c.Bool("skip-build") {
				if _, err := orch.Compile(c.Context); err != nil {
					return err
				}
			}

			result, err := orch.Archive(c.Context)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "%s: %d files, %d bytes\n", result.Path, len(result.Entries), result.Size)
			logger.Info().Str("archive", result.Path).Msg("Package complete")
			return nil
		},
	}
}

// PublishCommand returns the publish command, which uploads an existing archive
func PublishCommand(logger *zerolog.Logger, opts ...di.Option) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish an already packaged archive to the target functions",
		Description: `Uploads the archive to each target in order. The first failure stops the run;
later targets are not attempted.

Examples:
  grader-deployer publish
  grader-deployer publish --target main --archive build/grader.zip`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "archive",
				Aliases: []string{"a"},
				Usage:   "Archive to publish; defaults to archive_path",
			},
			targetFlag(),
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

			path := c.String("archive")
			if path == "" {
				path = cfg.ArchivePath
			}

			orch, err := di.Get[*orchestrator.Orchestrator](container)
			if err != nil {
				return err
			}

			release, results, err := orch.Publish(c.Context, path, targets)
			if err != nil {
				return err
			}

			logger.Info().
				Str("release", release.ID).
				Int("targets", len(results)).
				Msg("Publish complete")
			return nil
		},
	}
}
