package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// SendMessageAPI is the slice of the SQS client used for publishing
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Client publishes append notifications to an SQS queue
type Client struct {
	api      SendMessageAPI
	queueURL string
	log      *zap.Logger
}

// NewClient creates a new SQS client
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Client, error) {
	api, err := newAPI(ctx, SQSConfig, log)
	if err != nil {
		return nil, err
	}
	return NewClientWithAPI(api, SQSConfig.QueueURL, log), nil
}

func newAPI(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*sqs.Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	// Local development against ElasticMQ or LocalStack
	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS client created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL))

	return sqs.NewFromConfig(cfg, clientOpts...), nil
}

// NewClientWithAPI wraps an existing SQS API implementation
func NewClientWithAPI(api SendMessageAPI, queueURL string, log *zap.Logger) *Client {
	return &Client{api: api, queueURL: queueURL, log: log}
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.queueURL
}

// PublishEvent sends one notification; the table is also set as a message
// attribute so subscribers can filter without decoding the body.
func (c *Client) PublishEvent(ctx context.Context, notification domain.Notification) error {
	bodyJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(bodyJSON)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"Table": {
				DataType:    aws.String("String"),
				StringValue: aws.String(notification.Table.String()),
			},
			"EventID": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(notification.ID, 10)),
			},
		},
	})
	if err != nil {
		c.log.Error("Failed to send notification to SQS",
			zap.String("table", notification.Table.String()),
			zap.Int64("event_id", notification.ID),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	c.log.Debug("Notification published to SQS",
		zap.String("table", notification.Table.String()),
		zap.Int64("event_id", notification.ID))

	return nil
}
