package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/archive"
	"github.com/savaki/grader-deployer/internal/compiler"
	"github.com/savaki/grader-deployer/internal/config"
	"github.com/savaki/grader-deployer/internal/dao/releasedao"
	"github.com/savaki/grader-deployer/internal/orchestrator"
	"github.com/savaki/grader-deployer/internal/publisher"
	"github.com/savaki/grader-deployer/internal/services"
	"github.com/savaki/grader-deployer/internal/sourcesync"
	"go.uber.org/dig"
)

func ProvideSyncer(out Output) *sourcesync.Syncer {
	return sourcesync.New(out)
}

func ProvideCompiler(cfg config.Config) *compiler.Compiler {
	return compiler.New(compiler.ExecRunner{}, cfg.Compiler)
}

func ProvideArchiver() *archive.Builder {
	return archive.New()
}

// ProvidePublisher wires the optional artifact store and release recorder
// when their settings are present.
func ProvidePublisher(
	ctx context.Context,
	cfg config.Config,
	client publisher.LambdaAPI,
	s3Client *s3.Client,
	dynamoClient *dynamodb.Client,
	out Output,
) *publisher.Publisher {
	logger := zerolog.Ctx(ctx)

	opts := []publisher.Option{
		publisher.WithPublishVersion(cfg.PublishVersion),
	}
	if cfg.ArtifactBucket != "" {
		logger.Debug().Str("bucket", cfg.ArtifactBucket).Msg("Archive copies enabled")
		opts = append(opts, publisher.WithArtifactStore(
			services.NewS3ArtifactStore(s3Client, cfg.ArtifactBucket, cfg.ArtifactPrefix),
		))
	}
	if cfg.HistoryTable != "" {
		logger.Debug().Str("table", cfg.HistoryTable).Msg("Release history enabled")
		opts = append(opts, publisher.WithRecorder(
			services.NewReleaseService(releasedao.New(dynamoClient, cfg.HistoryTable)),
		))
	}

	return publisher.New(client, out, opts...)
}

// OrchestratorParams lists the orchestrator's dependencies. Publisher is
// absent when the container was built without credentials.
type OrchestratorParams struct {
	dig.In

	Config    config.Config
	Syncer    *sourcesync.Syncer
	Compiler  *compiler.Compiler
	Archiver  *archive.Builder
	Publisher *publisher.Publisher `optional:"true"`
	Out       Output
}

func ProvideOrchestrator(p OrchestratorParams) *orchestrator.Orchestrator {
	var pub orchestrator.Publisher
	if p.Publisher != nil {
		pub = p.Publisher
	}
	return orchestrator.New(p.Config, p.Syncer, p.Compiler, p.Archiver, pub, p.Out)
}
