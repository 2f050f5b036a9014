// Package di provides dependency injection configuration for the KeepStack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/keepstack/keepstack-server/internal/auth"
	"github.com/keepstack/keepstack-server/internal/config"
	"github.com/keepstack/keepstack-server/internal/di/providers"
	"github.com/keepstack/keepstack-server/internal/logger"
	"github.com/keepstack/keepstack-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideResourceService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideReferenceService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideMaintenanceService)

	// Workers
	do.Provide(injector, providers.ProvideIndexCheck)
	do.Provide(injector, providers.ProvideSessionSweeper)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ResourceService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.ReferenceService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*service.MaintenanceService](injector)

	// Index check runs before the server starts listening.
	_ = do.MustInvoke[*providers.IndexCheck](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionSweeperJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
