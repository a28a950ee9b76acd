package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/infrastructure/awsconf"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// PublishAPI is the subset of the SNS client used by Publisher.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher forwards user notifications to an SNS topic.
type Publisher struct {
	client   PublishAPI
	topicARN string
}

type message struct {
	UserID       string              `json:"user_id"`
	Notification domain.Notification `json:"notification"`
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	}), nil
}

func NewPublisher(client PublishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

// Publish sends n as JSON. The notification type and user id are set as
// message attributes so subscriptions can filter on them.
func (p *Publisher) Publish(ctx context.Context, userID string, n domain.Notification) error {
	body, err := json.Marshal(message{UserID: userID, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(n.Title),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type":    {DataType: aws.String("String"), StringValue: aws.String(string(n.Type))},
			"user_id": {DataType: aws.String("String"), StringValue: aws.String(userID)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
