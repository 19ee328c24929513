package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/savaki/gox/slicex"
	"github.com/savaki/grader-deployer/internal/dao/releasedao"
	"github.com/savaki/grader-deployer/internal/publisher"
)

// ReleaseDAO is the subset of releasedao.DAO used by ReleaseService
type ReleaseDAO interface {
	Create(ctx context.Context, input releasedao.CreateInput) (releasedao.Record, error)
	UpdateStatus(ctx context.Context, input releasedao.UpdateInput) error
	QueryByTarget(ctx context.Context, target string) ([]releasedao.Record, error)
}

// ReleaseService records publish history. It implements publisher.Recorder.
type ReleaseService struct {
	dao ReleaseDAO
}

// NewReleaseService creates a ReleaseService
func NewReleaseService(dao ReleaseDAO) *ReleaseService {
	return &ReleaseService{dao: dao}
}

var _ publisher.Recorder = (*ReleaseService)(nil)

// Start writes a PENDING record for target
func (s *ReleaseService) Start(ctx context.Context, release publisher.Release, target string) error {
	_, err := s.dao.Create(ctx, releasedao.CreateInput{
		Target:     target,
		ReleaseID:  release.ID,
		CodeSHA256: release.CodeSHA256,
		Size:       release.Size,
		Artifact:   release.Artifact,
	})
	return err
}

// Finish marks the record for target SUCCESS or FAILED
func (s *ReleaseService) Finish(ctx context.Context, release publisher.Release, target string, output *lambda.UpdateFunctionCodeOutput, callErr error) error {
	input := releasedao.UpdateInput{
		Target:    target,
		ReleaseID: release.ID,
		Status:    releasedao.StatusSuccess,
	}

	if callErr != nil {
		input.Status = releasedao.StatusFailed
		input.ErrorMsg = callErr.Error()
	} else if output != nil {
		input.Version = aws.ToString(output.Version)
		input.RevisionID = aws.ToString(output.RevisionId)
		input.RemoteSHA256 = aws.ToString(output.CodeSha256)
	}

	return s.dao.UpdateStatus(ctx, input)
}

// ReleaseSummary is one row of release history
type ReleaseSummary struct {
	Target     string
	ReleaseID  string
	Status     releasedao.ReleaseStatus
	Version    string
	CodeSHA256 string
	CreatedAt  time.Time
	Error      string
}

func toSummary(r releasedao.Record) ReleaseSummary {
	return ReleaseSummary{
		Target:     r.PK.String(),
		ReleaseID:  r.SK,
		Status:     r.Status,
		Version:    r.Version,
		CodeSHA256: r.CodeSHA256,
		CreatedAt:  time.Unix(r.CreatedAt, 0).UTC(),
		Error:      r.ErrorMsg,
	}
}

// History returns up to limit releases per target, newest first. A limit of
// zero or less returns everything.
func (s *ReleaseService) History(ctx context.Context, targets []string, limit int) ([]ReleaseSummary, error) {
	var summaries []ReleaseSummary
	for _, target := range targets {
		records, err := s.dao.QueryByTarget(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s: %w", target, err)
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		summaries = append(summaries, slicex.Map(records, toSummary)...)
	}
	return summaries, nil
}
