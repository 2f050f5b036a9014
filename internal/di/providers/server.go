package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/keepstack/keepstack-server/internal/api"
	"github.com/keepstack/keepstack-server/internal/config"
	"github.com/keepstack/keepstack-server/internal/logger"
	"github.com/keepstack/keepstack-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	authService := do.MustInvoke[*service.AuthService](i)
	resourceService := do.MustInvoke[*service.ResourceService](i)
	collectionService := do.MustInvoke[*service.CollectionService](i)
	tagService := do.MustInvoke[*service.TagService](i)
	referenceService := do.MustInvoke[*service.ReferenceService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	statsService := do.MustInvoke[*service.StatsService](i)
	maintenanceService := do.MustInvoke[*service.MaintenanceService](i)

	handler := api.NewServer(
		authService,
		resourceService,
		collectionService,
		tagService,
		referenceService,
		searchService,
		statsService,
		maintenanceService,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
