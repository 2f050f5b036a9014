package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/keepstack/keepstack-server/internal/logger"
	"github.com/keepstack/keepstack-server/internal/service"
)

// IndexCheck runs the startup consistency check against the search index.
// Any divergence triggers a full rebuild before the server accepts traffic.
type IndexCheck struct{}

// ProvideIndexCheck verifies the search index at boot.
func ProvideIndexCheck(i do.Injector) (*IndexCheck, error) {
	maintenance := do.MustInvoke[*service.MaintenanceService](i)

	if err := maintenance.StartupCheck(context.Background()); err != nil {
		return nil, err
	}

	return &IndexCheck{}, nil
}

// SessionSweeperJob runs periodic expired-session cleanup.
type SessionSweeperJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionSweeperJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionSweeper provides the periodic session cleanup job.
func ProvideSessionSweeper(i do.Injector) (*SessionSweeperJob, error) {
	maintenance := do.MustInvoke[*service.MaintenanceService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	// Initial sweep on startup, then hourly.
	go func() {
		if count, err := maintenance.SweepSessions(ctx); err != nil {
			log.Warn("Initial session sweep failed", "error", err)
		} else if count > 0 {
			log.Info("Initial session sweep completed", "deleted", count)
		}

		maintenance.RunSessionSweeper(ctx)
	}()

	log.Info("Session sweeper started")

	return &SessionSweeperJob{cancel: cancel}, nil
}
