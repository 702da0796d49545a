package sqs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// MockReceiveAPI is a mock implementation of ReceiveAPI
type MockReceiveAPI struct {
	mock.Mock
}

func (m *MockReceiveAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockReceiveAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

func receiptIs(handle string) any {
	return mock.MatchedBy(func(input *sqs.DeleteMessageInput) bool {
		return aws.ToString(input.ReceiptHandle) == handle
	})
}

func TestSubscriber_ReceiveNotifications(t *testing.T) {
	api := new(MockReceiveAPI)
	subscriber := NewSubscriberWithAPI(api, "https://sqs.local/queue/tracker", zap.NewNop())

	api.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(input *sqs.ReceiveMessageInput) bool {
		return aws.ToString(input.QueueUrl) == "https://sqs.local/queue/tracker" &&
			input.WaitTimeSeconds == 20 && input.MaxNumberOfMessages == 10
	})).Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{
		{
			MessageId:     aws.String("m-1"),
			ReceiptHandle: aws.String("r-1"),
			Body:          aws.String(`{"table":"opens","id":7,"uid":"u1","timestamp":"2026-01-02T03:04:05Z"}`),
		},
		{
			MessageId:     aws.String("m-2"),
			ReceiptHandle: aws.String("r-2"),
			Body:          aws.String(`not json`),
		},
	}}, nil)
	api.On("DeleteMessage", mock.Anything, receiptIs("r-1")).Return(&sqs.DeleteMessageOutput{}, nil)
	api.On("DeleteMessage", mock.Anything, receiptIs("r-2")).Return(&sqs.DeleteMessageOutput{}, nil)

	notifications, err := subscriber.ReceiveNotifications(context.Background())

	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.TableOpens, notifications[0].Table)
	assert.Equal(t, int64(7), notifications[0].ID)
	api.AssertExpectations(t)
}

func TestSubscriber_ReceiveNotifications_Empty(t *testing.T) {
	api := new(MockReceiveAPI)
	subscriber := NewSubscriberWithAPI(api, "https://sqs.local/queue/tracker", zap.NewNop())

	api.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil)

	notifications, err := subscriber.ReceiveNotifications(context.Background())

	require.NoError(t, err)
	assert.Empty(t, notifications)
	api.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestSubscriber_ReceiveNotifications_DeleteFailureIsLogged(t *testing.T) {
	api := new(MockReceiveAPI)
	subscriber := NewSubscriberWithAPI(api, "https://sqs.local/queue/tracker", zap.NewNop())

	api.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{
		{
			MessageId:     aws.String("m-1"),
			ReceiptHandle: aws.String("r-1"),
			Body:          aws.String(`{"table":"clicks","id":3}`),
		},
	}}, nil)
	api.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	notifications, err := subscriber.ReceiveNotifications(context.Background())

	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.TableClicks, notifications[0].Table)
}

func TestSubscriber_ReceiveNotifications_Error(t *testing.T) {
	api := new(MockReceiveAPI)
	subscriber := NewSubscriberWithAPI(api, "https://sqs.local/queue/tracker", zap.NewNop())

	api.On("ReceiveMessage", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	notifications, err := subscriber.ReceiveNotifications(context.Background())

	assert.Nil(t, notifications)
	assert.ErrorContains(t, err, "failed to receive messages from SQS")
}
