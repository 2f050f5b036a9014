package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepstack/keepstack-server/internal/store"
)

// SessionSweepInterval is how often expired refresh sessions are purged.
const SessionSweepInterval = time.Hour

// MaintenanceService owns the offline-health side of the store: search index
// verification and rebuild, plus session cleanup.
type MaintenanceService struct {
	store  store.Store
	logger *slog.Logger
}

// NewMaintenanceService creates a new maintenance service.
func NewMaintenanceService(st store.Store, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{store: st, logger: logger}
}

// Reindex rebuilds the full-text index from the resources table. An empty
// ownerID rebuilds every owner's rows.
func (s *MaintenanceService) Reindex(ctx context.Context, ownerID string) (int64, error) {
	indexed, err := s.store.RebuildIndex(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return indexed, nil
}

// Verify compares the resources table against the index. A diverged index
// is reported as a consistency error alongside the report detailing it.
func (s *MaintenanceService) Verify(ctx context.Context, ownerID string) (*store.IndexReport, error) {
	report, err := s.store.VerifyIndex(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !report.Consistent() {
		s.logger.Error("Search index diverged from resources",
			"missing", len(report.Missing),
			"orphaned", len(report.Orphaned),
		)
		return report, store.ErrIndexInconsistent
	}
	return report, nil
}

// StartupCheck runs once at boot. Resources without any index rows means the
// index file was lost or the database was imported; any divergence triggers
// a full rebuild before the server accepts traffic.
func (s *MaintenanceService) StartupCheck(ctx context.Context) error {
	report, err := s.store.VerifyIndex(ctx, "")
	if err != nil {
		return fmt.Errorf("verify index: %w", err)
	}

	if report.Consistent() {
		return nil
	}

	if report.Resources > 0 && report.Indexed == 0 {
		s.logger.Warn("Search index empty with resources present, rebuilding",
			"resources", report.Resources)
	} else {
		s.logger.Warn("Search index diverged, rebuilding",
			"missing", len(report.Missing),
			"orphaned", len(report.Orphaned),
		)
	}

	if _, err := s.store.RebuildIndex(ctx, ""); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// SweepSessions deletes sessions past their expiry and long-revoked ones.
func (s *MaintenanceService) SweepSessions(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Expired sessions removed", "count", removed)
	}
	return removed, nil
}

// RunSessionSweeper sweeps on an interval until the context is canceled.
// Intended to run in its own goroutine from the composition root.
func (s *MaintenanceService) RunSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepSessions(ctx); err != nil {
				s.logger.Warn("Session sweep failed", "error", err)
			}
		}
	}
}
