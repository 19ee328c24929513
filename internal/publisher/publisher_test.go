package publisher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	deployerrors "github.com/savaki/grader-deployer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLambdaClient struct {
	updateFunctionCodeFunc func(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	calls                  []*lambda.UpdateFunctionCodeInput
}

func (m *mockLambdaClient) UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	m.calls = append(m.calls, params)
	if m.updateFunctionCodeFunc != nil {
		return m.updateFunctionCodeFunc(ctx, params, optFns...)
	}
	return &lambda.UpdateFunctionCodeOutput{
		FunctionName: params.FunctionName,
		CodeSha256:   aws.String(CodeSHA256(params.ZipFile)),
		CodeSize:     int64(len(params.ZipFile)),
	}, nil
}

type recordedCall struct {
	phase  string
	target string
	failed bool
}

type mockRecorder struct {
	calls    []recordedCall
	startErr error
}

func (m *mockRecorder) Start(ctx context.Context, release Release, target string) error {
	m.calls = append(m.calls, recordedCall{phase: "start", target: target})
	return m.startErr
}

func (m *mockRecorder) Finish(ctx context.Context, release Release, target string, output *lambda.UpdateFunctionCodeOutput, callErr error) error {
	m.calls = append(m.calls, recordedCall{phase: "finish", target: target, failed: callErr != nil})
	return nil
}

type mockStore struct {
	putFunc func(ctx context.Context, releaseID string, data []byte) (string, error)
}

func (m *mockStore) Put(ctx context.Context, releaseID string, data []byte) (string, error) {
	return m.putFunc(ctx, releaseID, data)
}

func testContext() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}

func TestPublish_OrderAndPayload(t *testing.T) {
	client := &mockLambdaClient{}
	zip := []byte("PK\x03\x04 archive bytes")

	release, results, err := New(client, io.Discard).Publish(testContext(), []string{"A", "B", "C"}, zip)
	require.NoError(t, err)

	require.Len(t, client.calls, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, aws.ToString(client.calls[i].FunctionName))
		assert.Equal(t, zip, client.calls[i].ZipFile)
		assert.False(t, client.calls[i].Publish)
		assert.Equal(t, want, results[i].Target)
	}

	assert.NotEmpty(t, release.ID)
	assert.Equal(t, CodeSHA256(zip), release.CodeSHA256)
	assert.Equal(t, len(zip), release.Size)
}

func TestPublish_StopsAtFirstFailure(t *testing.T) {
	client := &mockLambdaClient{
		updateFunctionCodeFunc: func(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
			if aws.ToString(params.FunctionName) == "B" {
				return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Function not found: B"}
			}
			return &lambda.UpdateFunctionCodeOutput{FunctionName: params.FunctionName}, nil
		},
	}
	recorder := &mockRecorder{}

	_, results, err := New(client, io.Discard, WithRecorder(recorder)).
		Publish(testContext(), []string{"A", "B", "C"}, []byte("zip"))

	require.Error(t, err)
	var apiErr smithy.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "ResourceNotFoundException", apiErr.ErrorCode())

	assert.Len(t, client.calls, 2, "C must not be attempted")
	assert.Len(t, results, 1)
	assert.Equal(t, []recordedCall{
		{phase: "start", target: "A"},
		{phase: "finish", target: "A"},
		{phase: "start", target: "B"},
		{phase: "finish", target: "B", failed: true},
	}, recorder.calls)
}

func TestPublish_Rejects(t *testing.T) {
	client := &mockLambdaClient{}
	p := New(client, io.Discard)

	_, _, err := p.Publish(testContext(), []string{"A"}, nil)
	assert.ErrorIs(t, err, deployerrors.ErrEmptyArchive)

	_, _, err = p.Publish(testContext(), nil, []byte("zip"))
	assert.ErrorIs(t, err, deployerrors.ErrNoTargets)

	assert.Empty(t, client.calls)
}

func TestPublish_RecorderStartFailure(t *testing.T) {
	client := &mockLambdaClient{}
	recorder := &mockRecorder{startErr: errors.New("table missing")}

	_, _, err := New(client, io.Discard, WithRecorder(recorder)).
		Publish(testContext(), []string{"A"}, []byte("zip"))

	assert.Error(t, err)
	assert.Empty(t, client.calls)
}

func TestPublish_ArtifactStore(t *testing.T) {
	client := &mockLambdaClient{}
	var stored []byte
	store := &mockStore{
		putFunc: func(ctx context.Context, releaseID string, data []byte) (string, error) {
			stored = data
			return "s3://bucket/grader/" + releaseID + ".zip", nil
		},
	}

	release, _, err := New(client, io.Discard, WithArtifactStore(store), WithPublishVersion(true)).
		Publish(testContext(), []string{"A"}, []byte("zip"))
	require.NoError(t, err)

	assert.Equal(t, []byte("zip"), stored)
	assert.Equal(t, "s3://bucket/grader/"+release.ID+".zip", release.Artifact)
	require.Len(t, client.calls, 1)
	assert.True(t, client.calls[0].Publish)

	t.Run("store failure stops publish", func(t *testing.T) {
		client := &mockLambdaClient{}
		store := &mockStore{
			putFunc: func(ctx context.Context, releaseID string, data []byte) (string, error) {
				return "", errors.New("access denied")
			},
		}

		_, _, err := New(client, io.Discard, WithArtifactStore(store)).
			Publish(testContext(), []string{"A"}, []byte("zip"))
		assert.Error(t, err)
		assert.Empty(t, client.calls)
	})
}

func TestPrintFunctionCode(t *testing.T) {
	var buf bytes.Buffer
	PrintFunctionCode(&buf, "dev", &lambda.UpdateFunctionCodeOutput{
		FunctionName:     aws.String("Mobius_edx_Grader_DEV"),
		Runtime:          types.RuntimeNodejs18x,
		CodeSize:         1234,
		Version:          aws.String("$LATEST"),
		LastUpdateStatus: types.LastUpdateStatusInProgress,
		MemorySize:       aws.Int32(512),
	})

	out := buf.String()
	assert.Contains(t, out, "dev\n")
	assert.Contains(t, out, "FunctionName:")
	assert.Contains(t, out, "Mobius_edx_Grader_DEV")
	assert.Contains(t, out, "nodejs18.x")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "$LATEST")
	assert.Contains(t, out, "InProgress")
	assert.Contains(t, out, "512")
}

func TestCodeSHA256(t *testing.T) {
	// sha256("") in base64
	assert.Equal(t, "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", CodeSHA256(nil))
}
