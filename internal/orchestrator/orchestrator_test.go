package orchestrator

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/archive"
	"github.com/savaki/grader-deployer/internal/compiler"
	"github.com/savaki/grader-deployer/internal/config"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"github.com/savaki/grader-deployer/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSyncer struct {
	pairs [][]config.SyncDir
}

func (m *mockSyncer) Sync(ctx context.Context, pairs []config.SyncDir) (int, error) {
	m.pairs = append(m.pairs, pairs)
	return len(pairs), nil
}

type mockCompiler struct {
	output string
	calls  int
}

func (m *mockCompiler) Compile(ctx context.Context) (compiler.Result, error) {
	m.calls++
	return compiler.Result{Output: m.output, OK: compiler.Succeeded(m.output)}, nil
}

type mockLambdaClient struct {
	calls []*lambda.UpdateFunctionCodeInput
}

func (m *mockLambdaClient) UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	m.calls = append(m.calls, params)
	return &lambda.UpdateFunctionCodeOutput{
		FunctionName: params.FunctionName,
		CodeSha256:   aws.String(publisher.CodeSHA256(params.ZipFile)),
	}, nil
}

func testContext() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}

type fixture struct {
	cfg      config.Config
	syncer   *mockSyncer
	compiler *mockCompiler
	lambda   *mockLambdaClient
	out      *bytes.Buffer
	orch     *Orchestrator
}

// newFixture lays out a grader working tree in a temp dir
func newFixture(t *testing.T, compileOutput string, files map[string]string) *fixture {
	t.Helper()
	work := t.TempDir()

	for name, content := range files {
		path := filepath.Join(work, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	cfg := config.Default()
	cfg.SourceRoot = filepath.Join(work, "mobius")
	cfg.OutputDir = filepath.Join(work, "dist")
	cfg.ArchivePath = filepath.Join(work, "zipped_file", "zip_grader.zip")
	cfg.MetadataFile = filepath.Join(work, "package.json")
	cfg.StripMode = config.StripSemantic

	f := &fixture{
		cfg:      cfg,
		syncer:   &mockSyncer{},
		compiler: &mockCompiler{output: compileOutput},
		lambda:   &mockLambdaClient{},
		out:      &bytes.Buffer{},
	}
	f.orch = New(cfg, f.syncer, f.compiler, archive.New(), publisher.New(f.lambda, f.out), f.out)
	return f
}

func TestRun_FullPipeline(t *testing.T) {
	f := newFixture(t, "Compilation successful", map[string]string{
		"package.json":       `{"name":"grader"}`,
		"dist/grader.js":     "exports.handler = 1",
		"dist/libs/arr/a.js": "a",
	})

	report, err := f.orch.Run(testContext(), RunOptions{Targets: []string{"A", "B", "C"}})
	require.NoError(t, err)

	assert.Equal(t, StageDone, report.Stage)
	assert.Empty(t, f.syncer.pairs, "sync is skipped unless requested")
	assert.Equal(t, 1, f.compiler.calls)
	assert.ElementsMatch(t, []string{"grader.js", "package.json", "libs/arr/a.js"}, report.Archive.Entries)

	zip, err := os.ReadFile(f.cfg.ArchivePath)
	require.NoError(t, err)

	require.Len(t, f.lambda.calls, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, aws.ToString(f.lambda.calls[i].FunctionName))
		assert.Equal(t, zip, f.lambda.calls[i].ZipFile)
	}
	assert.Len(t, report.Results, 3)
	assert.Equal(t, publisher.CodeSHA256(zip), report.Release.CodeSHA256)
}

func TestRun_WithSync(t *testing.T) {
	f := newFixture(t, "", map[string]string{
		"package.json":     `{}`,
		"dist/libs/arr.js": "a",
	})

	report, err := f.orch.Run(testContext(), RunOptions{Sync: true, Targets: []string{"A"}})
	require.NoError(t, err)

	require.Len(t, f.syncer.pairs, 1)
	assert.Equal(t, f.cfg.SyncPairs(), f.syncer.pairs[0])
	assert.Equal(t, len(f.cfg.SyncDirs), report.Synced)
}

func TestRun_CompileFailureAborts(t *testing.T) {
	f := newFixture(t, "src/grader.ts(3,1): TS1005: error", map[string]string{
		"package.json":     `{}`,
		"dist/libs/arr.js": "a",
	})

	report, err := f.orch.Run(testContext(), RunOptions{Targets: []string{"A"}})

	assert.ErrorIs(t, err, deployerrors.ErrCompileFailed)
	assert.Equal(t, StageCompile, report.Stage)
	assert.Contains(t, f.out.String(), "TS1005: error")
	assert.Empty(t, f.lambda.calls)

	_, statErr := os.Stat(f.cfg.ArchivePath)
	assert.True(t, os.IsNotExist(statErr), "no archive after failed compile")
}

func TestRun_NothingToArchiveAborts(t *testing.T) {
	f := newFixture(t, "Compilation successful", map[string]string{
		"package.json":   `{}`,
		"dist/grader.js": "x",
	})

	report, err := f.orch.Run(testContext(), RunOptions{Targets: []string{"A"}})

	assert.ErrorIs(t, err, deployerrors.ErrNothingToArchive)
	assert.Equal(t, StageArchive, report.Stage)
	assert.Contains(t, f.out.String(), "nothing to archive")
	assert.Empty(t, f.lambda.calls)
}

func TestRun_MalformedMetadata(t *testing.T) {
	f := newFixture(t, "Compilation successful", map[string]string{
		"package.json":     `{"name":`,
		"dist/libs/arr.js": "a",
	})

	report, err := f.orch.Run(testContext(), RunOptions{Targets: []string{"A"}})

	assert.Error(t, err)
	assert.Equal(t, StageArchive, report.Stage)
	assert.Empty(t, f.lambda.calls)
}

func TestSync_RequiresSourceRoot(t *testing.T) {
	f := newFixture(t, "", nil)
	f.orch.cfg.SourceRoot = ""

	_, err := f.orch.Sync(testContext())
	assert.Error(t, err)
	assert.Empty(t, f.syncer.pairs)
}

func TestPublish_WithoutPublisher(t *testing.T) {
	f := newFixture(t, "", nil)
	orch := New(f.cfg, f.syncer, f.compiler, archive.New(), nil, f.out)

	_, _, err := orch.Publish(testContext(), f.cfg.ArchivePath, []string{"A"})
	assert.ErrorIs(t, err, deployerrors.ErrCredentialsMissing)
}
