package service

import (
	"context"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

// TrackingServicer records inbound open and click signals
type TrackingServicer interface {
	RecordOpen(ctx context.Context, req dto.OpenRequest) []byte
	RecordClick(ctx context.Context, req dto.ClickRequest) (string, bool)
}

// SyncServicer serves the pull-and-acknowledge protocol
type SyncServicer interface {
	ListOpens(ctx context.Context, req dto.ListEventsRequest) (*dto.ListOpensResponse, error)
	ListClicks(ctx context.Context, req dto.ListEventsRequest) (*dto.ListClicksResponse, error)
	MarkSynced(ctx context.Context, req *dto.MarkSyncedRequest) (*dto.MarkSyncedResponse, error)
}

// StatsServicer computes live summaries of the store
type StatsServicer interface {
	Stats(ctx context.Context) (*dto.StatsResponse, error)
	Status(ctx context.Context) (*dto.StatusResponse, error)
	Ready(ctx context.Context) error
}
