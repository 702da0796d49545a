package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
)

const (
	ServiceName    = "Email Tracker"
	ServiceVersion = "2.0"

	recentWindow = 24 * time.Hour
)

// StatsService computes read-only rollups straight from the store
type StatsService struct {
	repository repository.EventRepository
	now        func() time.Time
	log        *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(repo repository.EventRepository, log *zap.Logger) *StatsService {
	return &StatsService{
		repository: repo,
		now:        time.Now,
		log:        log,
	}
}

type countQuery struct {
	name string
	dst  *int64
	run  func(ctx context.Context) (int64, error)
}

func (s *StatsService) runCounts(ctx context.Context, queries []countQuery) error {
	for _, q := range queries {
		n, err := q.run(ctx)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", q.name, err)
		}
		*q.dst = n
	}
	return nil
}

func (s *StatsService) countAll(table domain.Table) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return s.repository.CountAll(ctx, table)
	}
}

func (s *StatsService) countUnsynced(table domain.Table) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return s.repository.CountUnsynced(ctx, table)
	}
}

// Stats returns totals, unsynced totals and opens seen in the last 24 hours
func (s *StatsService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	var response dto.StatsResponse
	cutoff := s.now().Add(-recentWindow)

	err := s.runCounts(ctx, []countQuery{
		{"opens", &response.TotalOpens, s.countAll(domain.TableOpens)},
		{"clicks", &response.TotalClicks, s.countAll(domain.TableClicks)},
		{"unsynced opens", &response.UnsyncedOpens, s.countUnsynced(domain.TableOpens)},
		{"unsynced clicks", &response.UnsyncedClicks, s.countUnsynced(domain.TableClicks)},
		{"recent opens", &response.RecentOpens24h, func(ctx context.Context) (int64, error) {
			return s.repository.CountSince(ctx, domain.TableOpens, cutoff)
		}},
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// Status summarises the service for operators
func (s *StatsService) Status(ctx context.Context) (*dto.StatusResponse, error) {
	response := dto.StatusResponse{
		Service:  ServiceName,
		Status:   "running",
		Version:  ServiceVersion,
		Database: s.repository.Backend(),
	}

	err := s.runCounts(ctx, []countQuery{
		{"opens", &response.TotalOpens, s.countAll(domain.TableOpens)},
		{"clicks", &response.TotalClicks, s.countAll(domain.TableClicks)},
		{"unsynced opens", &response.UnsyncedOpens, s.countUnsynced(domain.TableOpens)},
	})
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// Ready reports whether the backend answers
func (s *StatsService) Ready(ctx context.Context) error {
	if err := s.repository.Ping(ctx); err != nil {
		s.log.Warn("Readiness check failed", zap.Error(err))
		return fmt.Errorf("failed to reach database: %w", err)
	}
	return nil
}
