package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/store"
)

// DashboardStats is the per-user summary shown on the dashboard.
type DashboardStats struct {
	store.PostStats
	NextScheduled string `json:"next_scheduled"`
}

// StatsService computes dashboard aggregates over a user's posts.
type StatsService struct {
	store  store.Store
	logger *zap.Logger
}

func NewStatsService(st store.Store, logger *zap.Logger) *StatsService {
	return &StatsService{store: st, logger: logger}
}

func (s *StatsService) UserStats(ctx context.Context, userID uint) (*DashboardStats, error) {
	postStats, err := s.store.PostStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute post stats: %w", err)
	}

	stats := &DashboardStats{
		PostStats:     *postStats,
		NextScheduled: "unscheduled",
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.PostingHour != nil {
		stats.NextScheduled = fmt.Sprintf("daily at %02d:00", *user.PostingHour)
	}

	return stats, nil
}
