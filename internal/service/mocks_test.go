package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) AppendOpen(ctx context.Context, event *domain.OpenEvent) (int64, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) AppendClick(ctx context.Context, event *domain.ClickEvent) (int64, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) CountAll(ctx context.Context, table domain.Table) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) CountUnsynced(ctx context.Context, table domain.Table) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) CountSince(ctx context.Context, table domain.Table, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, table, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) QueryUnsyncedOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OpenEvent), args.Error(1)
}

func (m *MockEventRepository) QueryAllOpens(ctx context.Context, limit int) ([]domain.OpenEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OpenEvent), args.Error(1)
}

func (m *MockEventRepository) QueryUnsyncedClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClickEvent), args.Error(1)
}

func (m *MockEventRepository) QueryAllClicks(ctx context.Context, limit int) ([]domain.ClickEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClickEvent), args.Error(1)
}

func (m *MockEventRepository) MarkSynced(ctx context.Context, table domain.Table, ids []int64) (int64, error) {
	args := m.Called(ctx, table, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventRepository) Backend() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of queue.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, notification domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}
