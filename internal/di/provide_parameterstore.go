package di

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/savaki/grader-deployer/internal/services"
)

// ProvideSSMClient provides an SSM client for Parameter Store access
func ProvideSSMClient(awsConfig aws.Config) *ssm.Client {
	return ssm.NewFromConfig(awsConfig)
}

// ProvideParameterStore provides a ParameterStore backed by SSM
func ProvideParameterStore(ssmClient *ssm.Client) services.ParameterStore {
	return services.NewSSMParameterStore(ssmClient)
}
