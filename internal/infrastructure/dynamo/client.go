package dynamo

import (
	"context"

	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/infrastructure/awsconf"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClient creates a DynamoDB client, pointed at cfg.AWSEndpointURL when set.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	}), nil
}
