package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssetType enumerates the kinds of instrument tracked by the service
type AssetType string

const (
	AssetTypeStock AssetType = "STOCK"
)

// Asset represents a tradable instrument identified by its ticker symbol
type Asset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;size:32;not null" json:"symbol"`
	Name      string    `json:"name"`
	Type      AssetType `gorm:"size:16;not null;default:STOCK" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Price is one OHLCV observation for an asset. (asset_id, date) is unique.
type Price struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AssetID   uint            `gorm:"uniqueIndex:idx_price_asset_date;not null" json:"asset_id"`
	Asset     Asset           `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Date      time.Time       `gorm:"uniqueIndex:idx_price_asset_date;not null" json:"date"`
	Open      decimal.Decimal `gorm:"type:decimal(18,4)" json:"open"`
	High      decimal.Decimal `gorm:"type:decimal(18,4)" json:"high"`
	Low       decimal.Decimal `gorm:"type:decimal(18,4)" json:"low"`
	Close     decimal.Decimal `gorm:"type:decimal(18,4)" json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

// MigrateAssetModels runs database migrations for asset and price tables
func MigrateAssetModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Asset{},
		&Price{},
	)
}
