package releasedao

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/ddb/v2/ddbtest"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
)

const testTarget = "arn:aws:lambda:us-east-1:111111111111:function:Mobius_edx_Grader_DEV"

func TestParseID(t *testing.T) {
	tests := []struct {
		name        string
		id          ID
		wantTarget  string
		wantRelease string
		wantErr     bool
	}{
		{
			name:        "arn target",
			id:          NewID(testTarget, "2HFj3kLmNoPqRsTuVwXy"),
			wantTarget:  testTarget,
			wantRelease: "2HFj3kLmNoPqRsTuVwXy",
		},
		{
			name:        "plain function name",
			id:          ID("grader:2HFj3kLmNoPqRsTuVwXy"),
			wantTarget:  "grader",
			wantRelease: "2HFj3kLmNoPqRsTuVwXy",
		},
		{
			name:    "no separator",
			id:      ID("grader"),
			wantErr: true,
		},
		{
			name:    "empty release",
			id:      ID("grader:"),
			wantErr: true,
		},
		{
			name:    "empty target",
			id:      ID(":2HFj3kLmNoPqRsTuVwXy"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, release, err := ParseID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if target != tt.wantTarget {
				t.Errorf("ParseID() target = %v, want %v", target, tt.wantTarget)
			}
			if release != tt.wantRelease {
				t.Errorf("ParseID() release = %v, want %v", release, tt.wantRelease)
			}
		})
	}
}

type Data struct {
	DAO *DAO
}

func setup(t *testing.T) (ctx context.Context, data Data, cleanup func()) {
	ctx = context.Background()

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-west-2"),
		config.WithBaseEndpoint("http://localhost:8000"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("blah", "blah", ""),
		),
	)
	assert.NoError(t, err)

	var (
		client    = dynamodb.NewFromConfig(cfg)
		db        = ddb.New(client)
		tableName = fmt.Sprintf("releases-test-%v", ksuid.New().String())
		table     = db.MustTable(tableName, Record{})
		dao       = New(client, tableName)
	)

	err = table.CreateTableIfNotExists(ctx)
	assert.NoError(t, err)

	return ctx, Data{DAO: dao}, func() {
		_ = table.DeleteTableIfExists(ctx)
	}
}

func TestDAO(t *testing.T) {
	ddbtest.WithTable[Data](t, setup, func(t *testing.T, ctx context.Context, data Data) {
		dao := data.DAO

		t.Run("Create", func(t *testing.T) {
			releaseID := ksuid.New().String()

			created, err := dao.Create(ctx, CreateInput{
				Target:     testTarget,
				ReleaseID:  releaseID,
				CodeSHA256: "abc=",
				Size:       42,
			})
			assert.NoError(t, err)

			record, err := dao.Find(ctx, created.GetID())
			assert.NoError(t, err)
			assert.Equal(t, testTarget, record.PK.String())
			assert.Equal(t, releaseID, record.SK)
			assert.Equal(t, "abc=", record.CodeSHA256)
			assert.Equal(t, 42, record.Size)
			assert.Equal(t, StatusPending, record.Status)
			assert.NotZero(t, record.CreatedAt)
			assert.Zero(t, record.FinishedAt)
		})

		t.Run("Find_NotFound", func(t *testing.T) {
			_, err := dao.Find(ctx, NewID("missing-function", ksuid.New().String()))
			assert.Error(t, err)
		})

		t.Run("UpdateStatus_Success", func(t *testing.T) {
			releaseID := ksuid.New().String()
			created, err := dao.Create(ctx, CreateInput{Target: "success-fn", ReleaseID: releaseID})
			assert.NoError(t, err)

			err = dao.UpdateStatus(ctx, UpdateInput{
				Target:       "success-fn",
				ReleaseID:    releaseID,
				Status:       StatusSuccess,
				Version:      "$LATEST",
				RevisionID:   "rev-1",
				RemoteSHA256: "abc=",
			})
			assert.NoError(t, err)

			record, err := dao.Find(ctx, created.GetID())
			assert.NoError(t, err)
			assert.Equal(t, StatusSuccess, record.Status)
			assert.Equal(t, "$LATEST", record.Version)
			assert.Equal(t, "rev-1", record.RevisionID)
			assert.NotZero(t, record.FinishedAt)
		})

		t.Run("UpdateStatus_Failed", func(t *testing.T) {
			releaseID := ksuid.New().String()
			created, err := dao.Create(ctx, CreateInput{Target: "failed-fn", ReleaseID: releaseID})
			assert.NoError(t, err)

			err = dao.UpdateStatus(ctx, UpdateInput{
				Target:    "failed-fn",
				ReleaseID: releaseID,
				Status:    StatusFailed,
				ErrorMsg:  "ResourceNotFoundException",
			})
			assert.NoError(t, err)

			record, err := dao.Find(ctx, created.GetID())
			assert.NoError(t, err)
			assert.Equal(t, StatusFailed, record.Status)
			assert.Equal(t, "ResourceNotFoundException", record.ErrorMsg)
			assert.NotZero(t, record.FinishedAt)
		})

		t.Run("QueryByTarget_NewestFirst", func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, err := dao.Create(ctx, CreateInput{Target: "history-fn", ReleaseID: ksuid.New().String()})
				assert.NoError(t, err)
			}

			records, err := dao.QueryByTarget(ctx, "history-fn")
			assert.NoError(t, err)
			if !assert.Len(t, records, 3) {
				return
			}

			prev, err := ksuid.Parse(records[0].SK)
			assert.NoError(t, err)
			for _, r := range records[1:] {
				next, err := ksuid.Parse(r.SK)
				assert.NoError(t, err)
				assert.True(t, ksuid.Compare(prev, next) > 0)
				prev = next
			}
		})

		t.Run("Delete", func(t *testing.T) {
			releaseID := ksuid.New().String()
			created, err := dao.Create(ctx, CreateInput{Target: "delete-fn", ReleaseID: releaseID})
			assert.NoError(t, err)

			err = dao.Delete(ctx, created.GetID())
			assert.NoError(t, err)

			_, err = dao.Find(ctx, created.GetID())
			assert.Error(t, err)
		})
	})
}
