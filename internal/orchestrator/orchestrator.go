package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/archive"
	"github.com/savaki/grader-deployer/internal/compiler"
	"github.com/savaki/grader-deployer/internal/config"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"github.com/savaki/grader-deployer/internal/publisher"
)

// Stage names a step of the deploy pipeline
type Stage string

const (
	StageStart   Stage = "START"
	StageSync    Stage = "SYNC"
	StageCompile Stage = "COMPILE"
	StageArchive Stage = "ARCHIVE"
	StagePublish Stage = "PUBLISH"
	StageDone    Stage = "DONE"
)

// Syncer copies source directories into the working tree
type Syncer interface {
	Sync(ctx context.Context, pairs []config.SyncDir) (int, error)
}

// Compiler builds the working tree
type Compiler interface {
	Compile(ctx context.Context) (compiler.Result, error)
}

// Archiver packages the build output
type Archiver interface {
	Build(ctx context.Context, opts archive.Options) (archive.Result, error)
}

// Publisher uploads the archive to each target
type Publisher interface {
	Publish(ctx context.Context, targets []string, zip []byte) (publisher.Release, []publisher.Result, error)
}

// RunOptions controls a single pipeline run
type RunOptions struct {
	Sync    bool     // Copy sources from the external project first
	Targets []string // Resolved target identifiers, in publish order
}

// Report describes how far a run got
type Report struct {
	Stage   Stage // Last stage entered
	Synced  int   // Files copied by the sync stage
	Compile compiler.Result
	Archive archive.Result
	Release publisher.Release
	Results []publisher.Result
}

// Orchestrator runs the sync, compile, archive and publish stages in order.
// Each stage runs only if the previous one succeeded.
type Orchestrator struct {
	cfg       config.Config
	syncer    Syncer
	compiler  Compiler
	archiver  Archiver
	publisher Publisher
	out       io.Writer
}

// New creates a new Orchestrator. Operator messages are written to out.
func New(cfg config.Config, syncer Syncer, compiler Compiler, archiver Archiver, publisher Publisher, out io.Writer) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		syncer:    syncer,
		compiler:  compiler,
		archiver:  archiver,
		publisher: publisher,
		out:       out,
	}
}

// Run executes the pipeline. It stops at the first failing stage; the
// returned report names that stage.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (Report, error) {
	logger := zerolog.Ctx(ctx)
	report := Report{Stage: StageStart}

	if opts.Sync {
		report.Stage = StageSync
		n, err := o.Sync(ctx)
		report.Synced = n
		if err != nil {
			return report, err
		}
	} else {
		logger.Info().Msg("Skipping source sync")
	}

	report.Stage = StageCompile
	result, err := o.Compile(ctx)
	report.Compile = result
	if err != nil {
		return report, err
	}

	report.Stage = StageArchive
	archived, err := o.Archive(ctx)
	report.Archive = archived
	if err != nil {
		return report, err
	}

	report.Stage = StagePublish
	release, results, err := o.Publish(ctx, archived.Path, opts.Targets)
	report.Release = release
	report.Results = results
	if err != nil {
		return report, err
	}

	report.Stage = StageDone
	logger.Info().
		Str("release", release.ID).
		Int("targets", len(results)).
		Msg("Deploy complete")

	return report, nil
}

// Sync copies every configured directory from the source root
func (o *Orchestrator) Sync(ctx context.Context) (int, error) {
	if o.cfg.SourceRoot == "" {
		return 0, fmt.Errorf("source root is not configured")
	}

	n, err := o.syncer.Sync(ctx, o.cfg.SyncPairs())
	if err != nil {
		return n, fmt.Errorf("failed to sync sources: %w", err)
	}

	zerolog.Ctx(ctx).Info().Int("files", n).Msg("Sources synced")
	return n, nil
}

// Compile runs the compiler. When the output reports an error, the full
// output is printed and ErrCompileFailed is returned.
func (o *Orchestrator) Compile(ctx context.Context) (compiler.Result, error) {
	result, err := o.compiler.Compile(ctx)
	if err != nil {
		return result, err
	}

	if !result.OK {
		fmt.Fprintln(o.out, result.Output)
		return result, deployerrors.ErrCompileFailed
	}

	zerolog.Ctx(ctx).Info().Msg("Compilation succeeded")
	return result, nil
}

// Archive copies the metadata file into the output directory and zips it
func (o *Orchestrator) Archive(ctx context.Context) (archive.Result, error) {
	if o.cfg.MetadataFile != "" {
		if _, err := archive.CopyMetadata(o.cfg.MetadataFile, o.cfg.OutputDir); err != nil {
			return archive.Result{}, err
		}
	}

	result, err := o.archiver.Build(ctx, archive.OptionsFromConfig(o.cfg))
	if err != nil {
		if errors.Is(err, deployerrors.ErrNothingToArchive) {
			fmt.Fprintf(o.out, "ERROR: nothing to archive in %s\n", o.cfg.OutputDir)
		}
		return result, err
	}

	return result, nil
}

// Publish reads the archive at path and uploads it to targets in order
func (o *Orchestrator) Publish(ctx context.Context, path string, targets []string) (publisher.Release, []publisher.Result, error) {
	if o.publisher == nil {
		return publisher.Release{}, nil, fmt.Errorf("cannot publish: %w", deployerrors.ErrCredentialsMissing)
	}

	zip, err := archive.Read(path)
	if err != nil {
		return publisher.Release{}, nil, err
	}

	return o.publisher.Publish(ctx, targets, zip)
}
