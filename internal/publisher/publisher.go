// Package publisher replaces the code of deployed Lambda functions with a
// freshly built archive.
//
// Targets are updated one at a time in the order given. The first failure
// stops the run; later targets are not attempted.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"github.com/segmentio/ksuid"
)

// LambdaAPI is the subset of the Lambda client used to publish
type LambdaAPI interface {
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
}

// Recorder is notified around every UpdateFunctionCode call
type Recorder interface {
	// Start is called before the call for target
	Start(ctx context.Context, release Release, target string) error

	// Finish is called after the call for target with its outcome
	Finish(ctx context.Context, release Release, target string, output *lambda.UpdateFunctionCodeOutput, callErr error) error
}

// ArtifactStore keeps a copy of each published archive
type ArtifactStore interface {
	// Put stores data for the release and returns its location
	Put(ctx context.Context, releaseID string, data []byte) (string, error)
}

// Release identifies one publish run
type Release struct {
	ID         string // KSUID
	CodeSHA256 string // Base64 SHA-256 of the archive, as reported by Lambda
	Size       int
	Artifact   string // Location of the stored archive copy, if any
}

// Result is the outcome for a single target
type Result struct {
	Target string
	Output *lambda.UpdateFunctionCodeOutput
}

// Option configures a Publisher
type Option func(*Publisher)

// WithPublishVersion asks Lambda to publish a new version with each update
func WithPublishVersion(publish bool) Option {
	return func(p *Publisher) {
		p.publishVersion = publish
	}
}

// WithRecorder records every call to r
func WithRecorder(r Recorder) Option {
	return func(p *Publisher) {
		p.recorder = r
	}
}

// WithArtifactStore stores a copy of the archive before publishing
func WithArtifactStore(s ArtifactStore) Option {
	return func(p *Publisher) {
		p.store = s
	}
}

// Publisher updates Lambda function code
type Publisher struct {
	client         LambdaAPI
	out            io.Writer
	publishVersion bool
	recorder       Recorder
	store          ArtifactStore
}

// New creates a Publisher printing each response to out
func New(client LambdaAPI, out io.Writer, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		out:    out,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CodeSHA256 returns the digest of data in the format Lambda reports it
func CodeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Publish uploads zip to each target in order
func (p *Publisher) Publish(ctx context.Context, targets []string, zip []byte) (Release, []Result, error) {
	logger := zerolog.Ctx(ctx)

	if len(zip) == 0 {
		return Release{}, nil, deployerrors.ErrEmptyArchive
	}
	if len(targets) == 0 {
		return Release{}, nil, deployerrors.ErrNoTargets
	}

	release := Release{
		ID:         ksuid.New().String(),
		CodeSHA256: CodeSHA256(zip),
		Size:       len(zip),
	}

	if p.store != nil {
		location, err := p.store.Put(ctx, release.ID, zip)
		if err != nil {
			return release, nil, fmt.Errorf("failed to store archive: %w", err)
		}
		release.Artifact = location
		logger.Info().Str("artifact", location).Msg("Stored archive copy")
	}

	var results []Result
	for _, target := range targets {
		output, err := p.publishOne(ctx, release, target, zip)
		if err != nil {
			return release, results, err
		}
		results = append(results, Result{Target: target, Output: output})
	}

	return release, results, nil
}

func (p *Publisher) publishOne(ctx context.Context, release Release, target string, zip []byte) (*lambda.UpdateFunctionCodeOutput, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("release", release.ID).
		Str("function", target).
		Logger()

	if p.recorder != nil {
		if err := p.recorder.Start(ctx, release, target); err != nil {
			return nil, fmt.Errorf("failed to record release start: %w", err)
		}
	}

	logger.Info().Int("bytes", len(zip)).Msg("Updating function code")
	output, err := p.client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(target),
		ZipFile:      zip,
		Publish:      p.publishVersion,
	})

	if p.recorder != nil {
		if recErr := p.recorder.Finish(ctx, release, target, output, err); recErr != nil {
			logger.Warn().Err(recErr).Msg("Failed to record release outcome")
		}
	}

	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			logger.Error().
				Str("code", apiErr.ErrorCode()).
				Str("message", apiErr.ErrorMessage()).
				Msg("UpdateFunctionCode rejected")
		}
		return nil, fmt.Errorf("failed to update function code for %s: %w", target, err)
	}

	if got := aws.ToString(output.CodeSha256); got != release.CodeSHA256 {
		logger.Warn().
			Str("local", release.CodeSHA256).
			Str("remote", got).
			Msg("Deployed code digest differs from local archive")
	}

	PrintFunctionCode(p.out, target, output)
	return output, nil
}

// PrintFunctionCode writes the fields of output, one per line
func PrintFunctionCode(w io.Writer, target string, output *lambda.UpdateFunctionCodeOutput) {
	if w == nil || output == nil {
		return
	}

	fields := []struct {
		name  string
		value any
	}{
		{"FunctionName", aws.ToString(output.FunctionName)},
		{"FunctionArn", aws.ToString(output.FunctionArn)},
		{"Runtime", output.Runtime},
		{"Handler", aws.ToString(output.Handler)},
		{"Role", aws.ToString(output.Role)},
		{"CodeSize", output.CodeSize},
		{"CodeSha256", aws.ToString(output.CodeSha256)},
		{"Version", aws.ToString(output.Version)},
		{"LastModified", aws.ToString(output.LastModified)},
		{"State", output.State},
		{"LastUpdateStatus", output.LastUpdateStatus},
		{"RevisionId", aws.ToString(output.RevisionId)},
		{"MemorySize", aws.ToInt32(output.MemorySize)},
		{"Timeout", aws.ToInt32(output.Timeout)},
	}

	fmt.Fprintf(w, "\n%s\n", target)
	for _, f := range fields {
		fmt.Fprintf(w, "  %-18s %v\n", f.name+":", f.value)
	}
}
