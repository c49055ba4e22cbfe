// Package workboard orchestrates the review queue: refresh cycles against
// GitHub, the result cache, and triage mutations.
package workboard

import (
	"github.com/rs/zerolog"

	"github.com/colonyops/workboard/internal/core/config"
	"github.com/colonyops/workboard/internal/data/db"
	"github.com/colonyops/workboard/internal/data/stores"
)

// App is the central entry point for all workboard operations.
// Commands and the web server consume App instead of cherry-picking raw
// dependencies.
type App struct {
	Service *Service
	Cache   *stores.CacheStore
	Config  *config.Config
	DB      *db.DB
}

// NewApp constructs an App from explicit dependencies.
func NewApp(cfg *config.Config, database *db.DB, gh Gateway, log zerolog.Logger) *App {
	cache := stores.NewCacheStore(database)
	board := stores.NewBoardStore(database)
	fetcher := NewFetcher(gh, cache, log.With().Str("component", "fetcher").Logger())
	svc := NewService(cfg, board, fetcher, cache, log.With().Str("component", "service").Logger())

	return &App{
		Service: svc,
		Cache:   cache,
		Config:  cfg,
		DB:      database,
	}
}
