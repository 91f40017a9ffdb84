package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_ingestion_backend/models"
)

// AssetRegistry gives every symbol a durable identity before prices reference it
type AssetRegistry struct {
	db *gorm.DB
}

// NewAssetRegistry creates a registry backed by db
func NewAssetRegistry(db *gorm.DB) *AssetRegistry {
	return &AssetRegistry{db: db}
}

// NormalizeSymbol trims and uppercases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// EnsureAsset returns the asset ID for symbol, creating the asset on first use.
// The insert is an ON CONFLICT DO NOTHING upsert, so concurrent callers for the
// same symbol converge on a single row.
func (r *AssetRegistry) EnsureAsset(ctx context.Context, symbol string) (uint, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return 0, ErrEmptySymbol
	}

	asset := models.Asset{
		Symbol: symbol,
		Name:   symbol,
		Type:   models.AssetTypeStock,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoNothing: true,
		}).
		Create(&asset).Error
	if err != nil {
		return 0, &StorageError{Op: "create asset " + symbol, Err: err}
	}

	if asset.ID != 0 {
		return asset.ID, nil
	}

	// Conflict: the row already existed.
	var existing models.Asset
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&existing).Error; err != nil {
		return 0, &StorageError{Op: "find asset " + symbol, Err: err}
	}
	return existing.ID, nil
}

// ListSymbols returns every registered symbol in alphabetical order
func (r *AssetRegistry) ListSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, &StorageError{Op: "list assets", Err: err}
	}
	return symbols, nil
}

// Count returns the number of registered assets
func (r *AssetRegistry) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Asset{}).Count(&n).Error; err != nil {
		return 0, &StorageError{Op: "count assets", Err: err}
	}
	return n, nil
}
