package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/config"
	"github.com/savaki/grader-deployer/internal/constants"
	"github.com/savaki/grader-deployer/internal/credentials"
	"github.com/savaki/grader-deployer/internal/di"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"github.com/savaki/grader-deployer/internal/services"
	"github.com/urfave/cli/v2"
)

// NewApp returns the grader-deployer application. Running it without a
// subcommand performs a full deploy. opts are applied to every container the
// commands build.
func NewApp(logger *zerolog.Logger, opts ...di.Option) *cli.App {
	return &cli.App{
		Name:  "grader-deployer",
		Usage: "Build the grader and publish it to AWS Lambda",
		Description: `Compiles the grader, packages the compiled output into a zip archive and
replaces the code of each target Lambda function with it.

With no subcommand, the full pipeline runs against the dev function:
  compile (tsc -p .) -> package dist/ into zipped_file/zip_grader.zip -> publish

AWS keys are read from .amazon_key.yaml in the working directory.
Run "grader-deployer init" to create it.

Examples:
  # Deploy to the dev function
  grader-deployer

  # Copy shared sources from the modeller project first, then deploy to both functions
  grader-deployer deploy --sync --target dev --target main

  # Only build and package, without publishing
  grader-deployer package`,
		Flags: append(globalFlags(), deployFlags()...),
		Before: func(c *cli.Context) error {
			*logger = di.ProvideLogger(c.Bool("verbose"), c.Bool("json"))
			c.Context = logger.WithContext(c.Context)
			return nil
		},
		Action: func(c *cli.Context) error {
			return deployAction(c, logger, opts)
		},
		Commands: []*cli.Command{
			DeployCommand(logger, opts...),
			SyncCommand(logger, opts...),
			BuildCommand(logger, opts...),
			PackageCommand(logger, opts...),
			PublishCommand(logger, opts...),
			WhoAmICommand(logger, opts...),
			HistoryCommand(logger, opts...),
			InitCommand(logger),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML file overriding the built-in settings; optional unless set explicitly",
			Value:   constants.ConfigFile,
			EnvVars: []string{"GRADER_DEPLOYER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "credentials",
			Usage:   "YAML file holding the AWS access keys and mobius directory",
			Value:   constants.CredentialsFile,
			EnvVars: []string{"GRADER_DEPLOYER_CREDENTIALS"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Write logs as JSON",
		},
	}
}

func targetFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "target",
		Aliases: []string{"t"},
		Usage:   "Function name, ARN or alias (dev, main) to publish to; may be repeated. Defaults to the configured targets",
		EnvVars: []string{"GRADER_DEPLOYER_TARGETS"},
	}
}

// loadConfig reads the config file when present. A missing default file is
// not an error; a missing file named with --config is.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// loadCredentials reads the credential file. When it is missing or
// incomplete the operator guidance is returned as a cli exit error.
func loadCredentials(c *cli.Context) (credentials.Credentials, error) {
	path := c.String("credentials")
	creds, err := credentials.Load(path)
	if errors.Is(err, deployerrors.ErrCredentialsMissing) {
		return credentials.Credentials{}, cli.Exit(credentials.Guidance(path), 1)
	}
	if err != nil {
		return credentials.Credentials{}, err
	}
	return creds, nil
}

// setup loads credentials, then config, and builds the container. The
// credential check comes first so that nothing else happens without keys.
func setup(c *cli.Context, opts []di.Option) (config.Config, di.Container, error) {
	creds, err := loadCredentials(c)
	if err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cfg.SourceRoot == "" {
		cfg.SourceRoot = creds.MobiusDirectory
	}

	container, err := newContainer(c, cfg, opts, di.WithCredentials(creds))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, container, nil
}

// setupLocal builds a container for the stages that never talk to AWS
func setupLocal(c *cli.Context, opts []di.Option) (config.Config, di.Container, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return config.Config{}, nil, err
	}

	container, err := newContainer(c, cfg, opts)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, container, nil
}

func newContainer(c *cli.Context, cfg config.Config, opts []di.Option, extra ...di.Option) (di.Container, error) {
	all := []di.Option{
		di.WithContext(c.Context),
		di.WithOutput(c.App.Writer),
	}
	all = append(all, opts...)
	all = append(all, extra...)

	container, err := di.New(cfg, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}
	return container, nil
}

// resolveTargets picks the target list in order of precedence: --target
// flags, the SSM parameter named by targets_parameter, the configured targets.
func resolveTargets(c *cli.Context, cfg config.Config, container di.Container) ([]string, error) {
	names := c.StringSlice("target")
	if len(names) == 0 && cfg.TargetsParameter != "" {
		store, err := di.Get[services.ParameterStore](container)
		if err != nil {
			return nil, err
		}
		names, err = store.GetTargets(c.Context, cfg.TargetsParameter)
		if err != nil {
			return nil, err
		}
	}
	return cfg.ResolveTargets(names...)
}
