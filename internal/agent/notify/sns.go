package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	errx "github.com/wbdigital-chatbot/server/internal/core/error"
)

// Publisher is the subset of the SNS client used here.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes leads to a topic the sales team subscribes to.
type SNSNotifier struct {
	client   Publisher
	topicARN string
}

func NewSNSNotifier(ctx context.Context, region, topicARN string) (*SNSNotifier, error) {
	if topicARN == "" {
		return nil, errx.Missing("SNS_TOPIC_ARN")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSNotifier{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

func (n *SNSNotifier) Notify(ctx context.Context, lead Lead) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("New chatbot lead"),
		Message:  aws.String(lead.Text()),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"language": {DataType: aws.String("String"), StringValue: aws.String(string(lead.Language))},
			"page":     {DataType: aws.String("String"), StringValue: aws.String(lead.Page)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
