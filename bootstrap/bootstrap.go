// Package bootstrap builds the ingestion services shared by the API server and
// the administrative scripts.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"stock_ingestion_backend/config"
	"stock_ingestion_backend/models"
	"stock_ingestion_backend/services"
	"stock_ingestion_backend/services/quotesource"
)

// Services holds the objects constructed once per process
type Services struct {
	DB       *gorm.DB
	Registry *services.AssetRegistry
	Store    *services.PriceStore
	Engine   *services.Engine
}

// Open connects to storage, migrates the schema and wires the engine
func Open(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Running database migrations...")
	if err := models.MigrateAssetModels(db); err != nil {
		Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	registry := services.NewAssetRegistry(db)
	store := services.NewPriceStore(db)

	client := quotesource.NewClient(cfg.QuoteBaseURL,
		quotesource.WithTimeout(cfg.QuoteTimeout),
		quotesource.WithRetries(uint64(cfg.QuoteMaxRetries), 500*time.Millisecond),
		quotesource.WithLogger(logger.With("component", "quotesource")),
	)
	// all runs in the process share one upstream budget
	source := quotesource.NewMinInterval(client, cfg.SymbolDelay)

	engine := services.NewEngine(registry, store, source,
		services.WithPacing(cfg.Pacing()),
		services.WithEngineLogger(logger.With("component", "ingestion")),
	)

	return &Services{
		DB:       db,
		Registry: registry,
		Store:    store,
		Engine:   engine,
	}, nil
}

// Close releases the database connection
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}
}
