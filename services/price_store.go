package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_ingestion_backend/models"
)

// historicalChunkSize bounds the rows per INSERT statement in bulk writes
const historicalChunkSize = 500

// WriteStatus classifies the result of a single daily-price write
type WriteStatus string

const (
	WriteInserted  WriteStatus = "inserted"
	WriteDuplicate WriteStatus = "duplicate"
	WriteFailed    WriteStatus = "failed"
)

// WriteResult lets callers tell "fetched and persisted" apart from
// "fetched but not persisted". Err is set only when Status is WriteFailed.
type WriteResult struct {
	Status WriteStatus
	Date   time.Time
	Err    error
}

// Persisted reports whether a row for the date exists after the write
func (r WriteResult) Persisted() bool {
	return r.Status == WriteInserted || r.Status == WriteDuplicate
}

// StorageStats are the aggregate counts served to health and stats readers
type StorageStats struct {
	Assets int64 `json:"assets"`
	Prices int64 `json:"prices"`
}

// PriceStore persists daily and historical price records keyed by (asset, date)
type PriceStore struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPriceStore creates a price store backed by db
func NewPriceStore(db *gorm.DB) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: slog.Default().With("component", "price_store"),
		now:    time.Now,
	}
}

// WriteDailyPrice records a snapshot as the asset's price for the current UTC day.
// A snapshot carries a single price, so open, high, low and close all take it.
// Write errors are logged and reported in the result, never returned.
func (s *PriceStore) WriteDailyPrice(ctx context.Context, assetID uint, snap *models.QuoteSnapshot) WriteResult {
	date := truncateToDay(s.now())
	price := decimal.NewFromFloat(snap.Price)

	row := models.Price{
		AssetID: assetID,
		Date:    date,
		Open:    price,
		High:    price,
		Low:     price,
		Close:   price,
		Volume:  snap.Volume,
	}

	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if tx.Error != nil {
		err := &StorageError{Op: "write daily price", Err: tx.Error}
		s.logger.Error("failed to save daily price",
			"symbol", snap.Symbol,
			"asset_id", assetID,
			"date", date.Format("2006-01-02"),
			"error", err,
		)
		return WriteResult{Status: WriteFailed, Date: date, Err: err}
	}

	if tx.RowsAffected == 0 {
		s.logger.Debug("daily price already recorded", "symbol", snap.Symbol, "date", date.Format("2006-01-02"))
		return WriteResult{Status: WriteDuplicate, Date: date}
	}
	return WriteResult{Status: WriteInserted, Date: date}
}

// WriteHistoricalSeries bulk inserts points for an asset. Rows whose
// (asset, date) already exist are skipped, so repeated loads are idempotent.
// It returns the number of newly inserted rows.
func (s *PriceStore) WriteHistoricalSeries(ctx context.Context, assetID uint, points []models.OHLCVPoint) (int64, error) {
	if len(points) == 0 {
		s.logger.Info("no historical points to save", "asset_id", assetID)
		return 0, nil
	}

	rows := make([]models.Price, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.Price{
			AssetID: assetID,
			Date:    p.Timestamp.UTC(),
			Open:    decimal.NewFromFloat(p.Open),
			High:    decimal.NewFromFloat(p.High),
			Low:     decimal.NewFromFloat(p.Low),
			Close:   decimal.NewFromFloat(p.Close),
			Volume:  p.Volume,
		})
	}

	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, historicalChunkSize)
	if tx.Error != nil {
		return 0, &StorageError{Op: "write historical series", Err: tx.Error}
	}

	s.logger.Debug("historical series saved",
		"asset_id", assetID,
		"points", len(points),
		"inserted", tx.RowsAffected,
	)
	return tx.RowsAffected, nil
}

// Stats returns asset and price row counts
func (s *PriceStore) Stats(ctx context.Context) (StorageStats, error) {
	var stats StorageStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Asset{}).Count(&stats.Assets).Error; err != nil {
		return StorageStats{}, &StorageError{Op: "count assets", Err: err}
	}
	if err := db.Model(&models.Price{}).Count(&stats.Prices).Error; err != nil {
		return StorageStats{}, &StorageError{Op: "count prices", Err: err}
	}
	return stats, nil
}

// Ping verifies the storage connection is usable
func (s *PriceStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "get connection", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
