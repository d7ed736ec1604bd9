// Package app wires the application together: the database-backed
// repositories, the facet cache, the preview fetcher, and the dashboard
// web server.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benjlis/covid19-search/internal/facets"
	"github.com/benjlis/covid19-search/internal/platform/config"
	"github.com/benjlis/covid19-search/internal/preview"
	db "github.com/benjlis/covid19-search/internal/storage"
	"github.com/benjlis/covid19-search/internal/web"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates the application.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// Run starts the dashboard server and blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	cache := facets.NewCache(a.database, a.cfg.FacetCacheTTL)

	// Warm the facet catalog so the first page load doesn't pay for it.
	// A failure here is not fatal: the cache retries on demand.
	if _, err := cache.Get(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("facet catalog warmup failed")
	}

	fetcher := preview.NewFetcher(a.cfg.PreviewFetchRPS, a.cfg.PreviewFetchTimeout)

	handler, err := web.NewHandler(a.cfg, a.database, cache, fetcher, a.logger)
	if err != nil {
		return fmt.Errorf("create dashboard handler: %w", err)
	}

	server := web.NewServer(handler, a.database, a.cfg.HTTPPort, a.logger)

	return server.Start(ctx)
}
