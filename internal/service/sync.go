package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
)

// SyncService exposes unsynced events and applies acknowledgments
type SyncService struct {
	repository   repository.EventRepository
	defaultLimit int
	maxLimit     int
	log          *zap.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(repo repository.EventRepository, cfg config.Sync, log *zap.Logger) *SyncService {
	return &SyncService{
		repository:   repo,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		log:          log,
	}
}

// parseLimit applies the limit policy: empty means default, non-numeric or
// non-positive is rejected, anything above the cap is clamped.
func (s *SyncService) parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit %q is not an integer", ErrInvalidInput, raw)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		s.log.Debug("Clamping sync limit",
			zap.Int("requested", limit),
			zap.Int("max", s.maxLimit))
		limit = s.maxLimit
	}
	return limit, nil
}

// ListOpens returns the unsynced backlog oldest first, or with All set the
// newest opens regardless of sync state
func (s *SyncService) ListOpens(ctx context.Context, req dto.ListEventsRequest) (*dto.ListOpensResponse, error) {
	limit, err := s.parseLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	var events []domain.OpenEvent
	if req.All {
		events, err = s.repository.QueryAllOpens(ctx, limit)
	} else {
		events, err = s.repository.QueryUnsyncedOpens(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query opens: %w", err)
	}

	response := &dto.ListOpensResponse{
		Count: len(events),
		Opens: make([]dto.OpenRecord, 0, len(events)),
	}
	for _, e := range events {
		response.Opens = append(response.Opens, toOpenRecord(e))
	}

	return response, nil
}

// ListClicks is ListOpens for clicks
func (s *SyncService) ListClicks(ctx context.Context, req dto.ListEventsRequest) (*dto.ListClicksResponse, error) {
	limit, err := s.parseLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	var events []domain.ClickEvent
	if req.All {
		events, err = s.repository.QueryAllClicks(ctx, limit)
	} else {
		events, err = s.repository.QueryUnsyncedClicks(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}

	response := &dto.ListClicksResponse{
		Count:  len(events),
		Clicks: make([]dto.ClickRecord, 0, len(events)),
	}
	for _, e := range events {
		response.Clicks = append(response.Clicks, toClickRecord(e))
	}

	return response, nil
}

// MarkSynced applies an acknowledgment batch. Malformed ids are rejected one
// by one and reported; unknown or already synced ids simply count zero.
func (s *SyncService) MarkSynced(ctx context.Context, req *dto.MarkSyncedRequest) (*dto.MarkSyncedResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty acknowledgment", ErrInvalidInput)
	}

	openIDs, rejected := parseIDs(domain.TableOpens, req.MalformedOpenIDs, req.OpenIDs, nil)
	clickIDs, rejected := parseIDs(domain.TableClicks, req.MalformedClickIDs, req.ClickIDs, rejected)

	if len(rejected) > 0 {
		s.log.Warn("Rejected malformed ids in acknowledgment",
			zap.Int("rejected", len(rejected)))
	}

	openMarked, err := s.repository.MarkSynced(ctx, domain.TableOpens, openIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to mark opens as synced: %w", err)
	}

	clickMarked, err := s.repository.MarkSynced(ctx, domain.TableClicks, clickIDs)
	if err != nil {
		s.log.Warn("Clicks acknowledgment failed after opens were applied",
			zap.Int64("opens_marked", openMarked),
			zap.Error(err))
		return nil, fmt.Errorf("failed to mark clicks as synced: %w", err)
	}

	s.log.Info("Events marked as synced",
		zap.Int("open_ids", len(openIDs)),
		zap.Int("click_ids", len(clickIDs)),
		zap.Int64("opens_marked", openMarked),
		zap.Int64("clicks_marked", clickMarked))

	return &dto.MarkSyncedResponse{
		Status:   "ok",
		Marked:   openMarked + clickMarked,
		Rejected: rejected,
	}, nil
}

// parseIDs accepts JSON integers and numeric strings; everything else lands
// in rejected. malformed is a whole field that was not an array.
func parseIDs(table domain.Table, malformed json.RawMessage, raws []json.RawMessage, rejected []dto.RejectedID) ([]int64, []dto.RejectedID) {
	if rejected == nil {
		rejected = make([]dto.RejectedID, 0)
	}

	if len(malformed) > 0 {
		rejected = append(rejected, dto.RejectedID{
			Table:  table.String(),
			Value:  displayValue(malformed),
			Reason: "not an array of ids",
		})
	}

	ids := make([]int64, 0, len(raws))
	for _, raw := range raws {
		id, err := parseID(raw)
		if err != nil {
			rejected = append(rejected, dto.RejectedID{
				Table:  table.String(),
				Value:  displayValue(raw),
				Reason: err.Error(),
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids, rejected
}

// displayValue shows strings without their JSON quotes
func displayValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseID(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("not valid JSON")
	}

	var (
		id  int64
		err error
	)
	switch value := v.(type) {
	case json.Number:
		id, err = value.Int64()
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	default:
		return 0, fmt.Errorf("not an integer id")
	}
	if err != nil {
		return 0, fmt.Errorf("not an integer id")
	}
	if id < 1 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

func toOpenRecord(e domain.OpenEvent) dto.OpenRecord {
	return dto.OpenRecord{
		ID:        e.ID,
		UID:       e.UID,
		Timestamp: formatTime(e.Timestamp),
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Synced:    e.Synced,
	}
}

func toClickRecord(e domain.ClickEvent) dto.ClickRecord {
	return dto.ClickRecord{
		ID:        e.ID,
		UID:       e.UID,
		URL:       e.URL,
		Timestamp: formatTime(e.Timestamp),
		IP:        e.IP,
		Synced:    e.Synced,
	}
}

// formatTime leaves rows without a stored timestamp blank
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatTimestamp(t)
}
