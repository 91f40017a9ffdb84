package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_ingestion_backend/models"
)

// newTestDB opens a migrated in-memory SQLite database. A single connection
// keeps the in-memory database alive and serializes access.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.MigrateAssetModels(db))
	return db
}

func countPrices(t *testing.T, db *gorm.DB, symbol string) int64 {
	t.Helper()
	var n int64
	err := db.Model(&models.Price{}).
		Joins("JOIN assets ON assets.id = prices.asset_id").
		Where("assets.symbol = ?", symbol).
		Count(&n).Error
	require.NoError(t, err)
	return n
}

// fakePacer advances a virtual clock instead of sleeping
type fakePacer struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakePacer() *fakePacer {
	return &fakePacer{now: time.Date(2026, 3, 2, 21, 30, 0, 0, time.UTC)}
}

func (p *fakePacer) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, d)
	p.now = p.now.Add(d)
	return nil
}

func (p *fakePacer) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *fakePacer) Waits() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.waits...)
}

func points(n int, start time.Time) []models.OHLCVPoint {
	out := make([]models.OHLCVPoint, 0, n)
	for i := 0; i < n; i++ {
		v := 100 + float64(i)
		out = append(out, models.OHLCVPoint{
			Timestamp: start.AddDate(0, 0, 7*i),
			Open:      v,
			High:      v + 1,
			Low:       v - 1,
			Close:     v + 0.5,
			Volume:    int64(1000 * (i + 1)),
		})
	}
	return out
}
