package releasedao

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
)

// PK represents the partition key: the target function name or ARN
type PK string

// NewPK creates a partition key from a target identifier
func NewPK(target string) PK {
	return PK(target)
}

// String returns the string representation
func (pk PK) String() string {
	return string(pk)
}

// ID represents a release record ID in format {target}:{ksuid}
// Example: arn:aws:lambda:us-east-1:111111111111:function:grader:2HFj3kLmNoPqRsTuVwXy
type ID string

// NewID creates an ID from a target and release KSUID
func NewID(target, releaseID string) ID {
	return ID(fmt.Sprintf("%s:%s", target, releaseID))
}

// ParseID splits an ID on its last colon. Targets may themselves contain
// colons (ARNs); release ids never do.
func ParseID(id ID) (target, releaseID string, err error) {
	s := string(id)
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("invalid ID format: %s, expected {target}:{ksuid}", s)
	}
	return s[:i], s[i+1:], nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// ReleaseStatus represents the outcome of publishing to one target
type ReleaseStatus string

const (
	StatusPending ReleaseStatus = "PENDING"
	StatusSuccess ReleaseStatus = "SUCCESS"
	StatusFailed  ReleaseStatus = "FAILED"
)

// Record represents the publication of one archive to one target
type Record struct {
	PK           PK            `ddb:"hash" dynamodbav:"pk"`           // Target function
	SK           string        `ddb:"range" dynamodbav:"sk"`          // Release KSUID
	CodeSHA256   string        `dynamodbav:"code_sha256"`             // Local archive digest
	Size         int           `dynamodbav:"size"`                    // Archive size in bytes
	Artifact     string        `dynamodbav:"artifact,omitempty"`      // Stored archive copy
	Status       ReleaseStatus `dynamodbav:"status"`                  // PENDING|SUCCESS|FAILED
	Version      string        `dynamodbav:"version,omitempty"`       // Lambda version after update
	RevisionID   string        `dynamodbav:"revision_id,omitempty"`   // Lambda revision after update
	RemoteSHA256 string        `dynamodbav:"remote_sha256,omitempty"` // Digest reported by Lambda
	ErrorMsg     string        `dynamodbav:"error_msg,omitempty"`
	CreatedAt    int64         `dynamodbav:"created_at"`            // Unix timestamp
	UpdatedAt    int64         `dynamodbav:"updated_at"`            // Unix timestamp
	FinishedAt   int64         `dynamodbav:"finished_at,omitempty"` // Unix timestamp
}

// GetID returns the ID for this record
func (r *Record) GetID() ID {
	return NewID(r.PK.String(), r.SK)
}

// CreateInput contains fields for creating a release record
type CreateInput struct {
	Target     string
	ReleaseID  string
	CodeSHA256 string
	Size       int
	Artifact   string
}

// UpdateInput contains fields for updating a release record
type UpdateInput struct {
	Target       string
	ReleaseID    string
	Status       ReleaseStatus
	Version      string
	RevisionID   string
	RemoteSHA256 string
	ErrorMsg     string
}

// DAO provides data access operations for release history
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:    db,
		table: table,
	}
}

// Create writes a release record with PENDING status
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	now := time.Now().Unix()

	record := Record{
		PK:         NewPK(input.Target),
		SK:         input.ReleaseID,
		CodeSHA256: input.CodeSHA256,
		Size:       input.Size,
		Artifact:   input.Artifact,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.table.Put(&record).RunWithContext(ctx); err != nil {
		return Record{}, fmt.Errorf("failed to create release record: %w", err)
	}

	return record, nil
}

// Find retrieves a release record by ID
func (d *DAO) Find(ctx context.Context, id ID) (Record, error) {
	target, releaseID, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var record Record
	err = d.table.Get(NewPK(target).String()).
		Range(releaseID).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		if strings.Contains(err.Error(), "item not found") || strings.Contains(err.Error(), "ItemNotFound") {
			return Record{}, fmt.Errorf("release record not found: %s", id)
		}
		return Record{}, fmt.Errorf("failed to get release: %w", err)
	}

	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("release record not found: %s", id)
	}

	return record, nil
}

// UpdateStatus records the outcome of a release
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	now := time.Now().Unix()

	update := d.table.Update(NewPK(input.Target).String()).
		Range(input.ReleaseID).
		Set("#Status = ?", string(input.Status)).
		Set("#UpdatedAt = ?", now)

	if input.Version != "" {
		update = update.Set("#Version = ?", input.Version)
	}

	if input.RevisionID != "" {
		update = update.Set("#RevisionID = ?", input.RevisionID)
	}

	if input.RemoteSHA256 != "" {
		update = update.Set("#RemoteSHA256 = ?", input.RemoteSHA256)
	}

	if input.ErrorMsg != "" {
		update = update.Set("#ErrorMsg = ?", input.ErrorMsg)
	}

	if input.Status == StatusSuccess || input.Status == StatusFailed {
		update = update.Set("#FinishedAt = ?", now)
	}

	if err := update.RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to update release status: %w", err)
	}

	return nil
}

// QueryByTarget returns the releases of a target, newest first
func (d *DAO) QueryByTarget(ctx context.Context, target string) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", NewPK(target).String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}

	// KSUIDs sort by creation time
	slices.Reverse(records)

	return records, nil
}

// Delete removes a release record
func (d *DAO) Delete(ctx context.Context, id ID) error {
	target, releaseID, err := ParseID(id)
	if err != nil {
		return err
	}

	err = d.table.Delete(NewPK(target).String()).
		Range(releaseID).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete release: %w", err)
	}

	return nil
}
