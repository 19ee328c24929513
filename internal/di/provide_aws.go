package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/savaki/grader-deployer/internal/config"
	"github.com/savaki/grader-deployer/internal/credentials"
	"github.com/savaki/grader-deployer/internal/publisher"
	"github.com/savaki/grader-deployer/internal/services"
)

// ProvideAWSConfig builds the SDK configuration from the operator's static
// keys and the configured region.
func ProvideAWSConfig(ctx context.Context, cfg config.Config, creds credentials.Credentials) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		),
	)
}

func ProvideLambdaClient(config aws.Config) *lambda.Client {
	return lambda.NewFromConfig(config)
}

// ProvideLambdaAPI narrows the Lambda client to what the publisher calls
func ProvideLambdaAPI(client *lambda.Client) publisher.LambdaAPI {
	return client
}

func ProvideS3Client(config aws.Config) *s3.Client {
	return s3.NewFromConfig(config)
}

func ProvideSTSClient(config aws.Config) *sts.Client {
	return sts.NewFromConfig(config)
}

func ProvideDynamoDB(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideIdentityService(client *sts.Client) *services.IdentityService {
	return services.NewIdentityService(client)
}
