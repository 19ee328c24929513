package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the subset of the STS client used to check credentials
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity describes the principal behind the loaded credentials
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// IdentityService resolves who the configured credentials belong to
type IdentityService struct {
	client STSAPI
}

// NewIdentityService creates an IdentityService
func NewIdentityService(client STSAPI) *IdentityService {
	return &IdentityService{client: client}
}

// WhoAmI returns the caller identity for the current credentials
func (s *IdentityService) WhoAmI(ctx context.Context) (Identity, error) {
	result, err := s.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get caller identity: %w", err)
	}

	if result.Account == nil {
		return Identity{}, fmt.Errorf("account ID is nil")
	}

	return Identity{
		Account: aws.ToString(result.Account),
		ARN:     aws.ToString(result.Arn),
		UserID:  aws.ToString(result.UserId),
	}, nil
}
