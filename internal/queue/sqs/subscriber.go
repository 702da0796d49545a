package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	envConfig "github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

const (
	maxMessages     = 10
	waitTimeSeconds = 20
)

// ReceiveAPI is the slice of the SQS client used for subscribing
type ReceiveAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Subscriber long-polls the notification queue. Notifications are hints
// only, so every received message is deleted, decodable or not.
type Subscriber struct {
	api      ReceiveAPI
	queueURL string
	log      *zap.Logger
}

func NewSubscriber(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Subscriber, error) {
	api, err := newAPI(ctx, SQSConfig, log)
	if err != nil {
		return nil, err
	}
	return NewSubscriberWithAPI(api, SQSConfig.QueueURL, log), nil
}

func NewSubscriberWithAPI(api ReceiveAPI, queueURL string, log *zap.Logger) *Subscriber {
	return &Subscriber{api: api, queueURL: queueURL, log: log}
}

// ReceiveNotifications waits up to the long-poll window for notifications
func (s *Subscriber) ReceiveNotifications(ctx context.Context) ([]domain.Notification, error) {
	result, err := s.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(s.queueURL),
		MaxNumberOfMessages:   maxMessages,
		WaitTimeSeconds:       waitTimeSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages from SQS: %w", err)
	}

	notifications := make([]domain.Notification, 0, len(result.Messages))
	for _, msg := range result.Messages {
		var n domain.Notification
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &n); err != nil {
			s.log.Warn("Dropping malformed notification",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err))
		} else {
			notifications = append(notifications, n)
		}

		if _, err := s.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(s.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			s.log.Error("Failed to delete notification",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err))
		}
	}

	return notifications, nil
}
