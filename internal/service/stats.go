package service

import (
	"context"
	"log/slog"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// StatsService assembles the owner's overview statistics.
type StatsService struct {
	store  store.Store
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(st store.Store, logger *slog.Logger) *StatsService {
	return &StatsService{store: st, logger: logger}
}

// Overview returns totals, per-day activity over the period, top tags and
// top link domains. An empty period defaults to a week.
func (s *StatsService) Overview(ctx context.Context, ownerID string, period domain.StatsPeriod) (*domain.UserStats, error) {
	if period == "" {
		period = domain.StatsPeriodWeek
	}
	if !period.Valid() {
		return nil, store.ErrInvalidInput.WithMessage("period: must be week, month, or year")
	}
	return s.store.UserStats(ctx, ownerID, period)
}
