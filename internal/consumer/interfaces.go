package consumer

import (
	"context"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

// SyncSource is the tracker side of the pull-and-acknowledge protocol
type SyncSource interface {
	ListOpens(ctx context.Context, limit int, all bool) (*dto.ListOpensResponse, error)
	ListClicks(ctx context.Context, limit int, all bool) (*dto.ListClicksResponse, error)
	MarkSynced(ctx context.Context, openIDs, clickIDs []int64) (*dto.MarkSyncedResponse, error)
}

// Sink receives pulled events. A batch is acknowledged only after Write
// returns nil, so a Sink must tolerate seeing the same event twice.
type Sink interface {
	Write(ctx context.Context, batch Batch) error
}
