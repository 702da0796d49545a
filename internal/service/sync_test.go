package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository/sqlstore"
)

var testSyncConfig = config.Sync{DefaultLimit: 1000, MaxLimit: 10000}

func rawIDs(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out
}

func TestSyncService_ParseLimit(t *testing.T) {
	service := NewSyncService(new(MockEventRepository), testSyncConfig, zap.NewNop())

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty uses default", raw: "", want: 1000},
		{name: "whitespace uses default", raw: "  ", want: 1000},
		{name: "explicit value", raw: "25", want: 25},
		{name: "clamped to max", raw: "50000", want: 10000},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "negative rejected", raw: "-3", wantErr: true},
		{name: "non numeric rejected", raw: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.parseLimit(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSyncService_ListOpens_Unsynced(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	stamp := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)
	mockRepo.On("QueryUnsyncedOpens", mock.Anything, 1000).Return([]domain.OpenEvent{
		{ID: 1, UID: "u1", Timestamp: stamp, IP: "203.0.113.5", UserAgent: "Mail/1.0"},
	}, nil)

	response, err := service.ListOpens(context.Background(), dto.ListEventsRequest{})

	require.NoError(t, err)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, dto.OpenRecord{
		ID:        1,
		UID:       "u1",
		Timestamp: "2026-01-02 15:04:05",
		IP:        "203.0.113.5",
		UserAgent: "Mail/1.0",
		Synced:    false,
	}, response.Opens[0])
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "QueryAllOpens", mock.Anything, mock.Anything)
}

func TestSyncService_ListOpens_All(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("QueryAllOpens", mock.Anything, 5).Return([]domain.OpenEvent{
		{ID: 2, UID: "u2", Synced: true},
		{ID: 1, UID: "u1", Synced: true},
	}, nil)

	response, err := service.ListOpens(context.Background(), dto.ListEventsRequest{Limit: "5", All: true})

	require.NoError(t, err)
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, int64(2), response.Opens[0].ID)
	assert.True(t, response.Opens[0].Synced)
	assert.Empty(t, response.Opens[0].Timestamp)
	mockRepo.AssertExpectations(t)
}

func TestSyncService_ListOpens_EmptyIsNotNil(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("QueryUnsyncedOpens", mock.Anything, 1000).Return(nil, nil)

	response, err := service.ListOpens(context.Background(), dto.ListEventsRequest{})

	require.NoError(t, err)
	assert.Equal(t, 0, response.Count)
	assert.NotNil(t, response.Opens)
}

func TestSyncService_ListOpens_InvalidLimit(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	_, err := service.ListOpens(context.Background(), dto.ListEventsRequest{Limit: "abc"})

	assert.ErrorIs(t, err, ErrInvalidInput)
	mockRepo.AssertNotCalled(t, "QueryUnsyncedOpens", mock.Anything, mock.Anything)
}

func TestSyncService_ListClicks_StorageError(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("QueryUnsyncedClicks", mock.Anything, 1000).
		Return(nil, repository.NewStorageError("query", domain.TableClicks, errors.New("database is locked")))

	response, err := service.ListClicks(context.Background(), dto.ListEventsRequest{})

	assert.Nil(t, response)
	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.Contains(t, err.Error(), "failed to query clicks")
}

func TestSyncService_ListClicks_All(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("QueryAllClicks", mock.Anything, 10000).Return([]domain.ClickEvent{
		{ID: 3, UID: "u1", URL: "https://x"},
	}, nil)

	response, err := service.ListClicks(context.Background(), dto.ListEventsRequest{Limit: "99999", All: true})

	require.NoError(t, err)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "https://x", response.Clicks[0].URL)
	mockRepo.AssertExpectations(t)
}

func TestSyncService_MarkSynced_SumsBothTables(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("MarkSynced", mock.Anything, domain.TableOpens, []int64{1, 2}).Return(int64(2), nil)
	mockRepo.On("MarkSynced", mock.Anything, domain.TableClicks, []int64{5}).Return(int64(1), nil)

	response, err := service.MarkSynced(context.Background(), &dto.MarkSyncedRequest{
		OpenIDs:  rawIDs("1", `"2"`),
		ClickIDs: rawIDs("5"),
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, int64(3), response.Marked)
	assert.Empty(t, response.Rejected)
	assert.NotNil(t, response.Rejected)
	mockRepo.AssertExpectations(t)
}

func TestSyncService_MarkSynced_RejectsMalformedIDs(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("MarkSynced", mock.Anything, domain.TableOpens, []int64{4}).Return(int64(1), nil)
	mockRepo.On("MarkSynced", mock.Anything, domain.TableClicks, []int64{}).Return(int64(0), nil)

	response, err := service.MarkSynced(context.Background(), &dto.MarkSyncedRequest{
		OpenIDs:  rawIDs(`"abc"`, "4", "1.5", "0", "null", "{}"),
		ClickIDs: rawIDs("-2"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), response.Marked)
	require.Len(t, response.Rejected, 6)

	assert.Equal(t, dto.RejectedID{Table: "opens", Value: "abc", Reason: "not an integer id"}, response.Rejected[0])
	assert.Equal(t, "not an integer id", response.Rejected[1].Reason)
	assert.Equal(t, "id must be positive", response.Rejected[2].Reason)
	assert.Equal(t, "not an integer id", response.Rejected[3].Reason)
	assert.Equal(t, "not an integer id", response.Rejected[4].Reason)
	assert.Equal(t, dto.RejectedID{Table: "clicks", Value: "-2", Reason: "id must be positive"}, response.Rejected[5])
}

func TestSyncService_MarkSynced_MalformedFieldKeepsOtherTable(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("MarkSynced", mock.Anything, domain.TableOpens, []int64{}).Return(int64(0), nil)
	mockRepo.On("MarkSynced", mock.Anything, domain.TableClicks, []int64{1}).Return(int64(1), nil)

	var req dto.MarkSyncedRequest
	require.NoError(t, json.Unmarshal([]byte(`{"open_ids":"abc","click_ids":[1]}`), &req))

	response, err := service.MarkSynced(context.Background(), &req)

	require.NoError(t, err)
	assert.Equal(t, int64(1), response.Marked)
	assert.Equal(t, []dto.RejectedID{{Table: "opens", Value: "abc", Reason: "not an array of ids"}}, response.Rejected)
	mockRepo.AssertExpectations(t)
}

func TestSyncService_MarkSynced_NilRequest(t *testing.T) {
	service := NewSyncService(new(MockEventRepository), testSyncConfig, zap.NewNop())

	_, err := service.MarkSynced(context.Background(), nil)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSyncService_MarkSynced_OpensFailure(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("MarkSynced", mock.Anything, domain.TableOpens, []int64{1}).
		Return(int64(0), repository.NewStorageError("update", domain.TableOpens, errors.New("disk I/O error")))

	_, err := service.MarkSynced(context.Background(), &dto.MarkSyncedRequest{
		OpenIDs:  rawIDs("1"),
		ClickIDs: rawIDs("2"),
	})

	assert.ErrorIs(t, err, repository.ErrStorage)
	mockRepo.AssertNotCalled(t, "MarkSynced", mock.Anything, domain.TableClicks, mock.Anything)
}

func TestSyncService_MarkSynced_ClicksFailure(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewSyncService(mockRepo, testSyncConfig, zap.NewNop())

	mockRepo.On("MarkSynced", mock.Anything, domain.TableOpens, []int64{}).Return(int64(0), nil)
	mockRepo.On("MarkSynced", mock.Anything, domain.TableClicks, []int64{2}).
		Return(int64(0), repository.NewStorageError("update", domain.TableClicks, errors.New("disk I/O error")))

	_, err := service.MarkSynced(context.Background(), &dto.MarkSyncedRequest{ClickIDs: rawIDs("2")})

	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.Contains(t, err.Error(), "failed to mark clicks as synced")
}

// Pull, acknowledge, then redeliver the same acknowledgment against a real
// store: the second round must change nothing.
func TestSyncService_PullAckRedeliver_SQLite(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlstore.Open(ctx, config.Database{
		Driver:          config.DriverSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "tracker.db"),
		MaxOpenConns:    4,
		QueryTimeoutSec: 5,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.InitSchema(ctx))

	tracking := NewTrackingService(repo, nil, zap.NewNop())
	syncer := NewSyncService(repo, testSyncConfig, zap.NewNop())

	tracking.RecordOpen(ctx, dto.OpenRequest{UID: "a"})
	tracking.RecordOpen(ctx, dto.OpenRequest{UID: "b"})
	tracking.RecordClick(ctx, dto.ClickRequest{UID: "a", URL: "https://x"})

	opens, err := syncer.ListOpens(ctx, dto.ListEventsRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, opens.Count)
	assert.Equal(t, int64(1), opens.Opens[0].ID)
	assert.Equal(t, int64(2), opens.Opens[1].ID)

	ack := &dto.MarkSyncedRequest{OpenIDs: rawIDs("1", "2"), ClickIDs: rawIDs("1")}

	first, err := syncer.MarkSynced(ctx, ack)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.Marked)

	second, err := syncer.MarkSynced(ctx, ack)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Marked)

	opens, err = syncer.ListOpens(ctx, dto.ListEventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, opens.Count)

	all, err := syncer.ListOpens(ctx, dto.ListEventsRequest{All: true})
	require.NoError(t, err)
	require.Equal(t, 2, all.Count)
	assert.Equal(t, int64(2), all.Opens[0].ID)
	assert.True(t, all.Opens[0].Synced)
}
