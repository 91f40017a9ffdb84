package quotesource

import (
	"context"
	"sync"
	"time"

	"stock_ingestion_backend/models"
)

// MinInterval wraps a Source and enforces a minimum time between the start of
// any two fetches, across every caller sharing the wrapper. Each call reserves
// its slot under the lock, so concurrent callers queue instead of bursting.
type MinInterval struct {
	Source   Source
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

var _ Source = (*MinInterval)(nil)

// NewMinInterval wraps src with a shared minimum gap between requests
func NewMinInterval(src Source, interval time.Duration) *MinInterval {
	return &MinInterval{Source: src, Interval: interval}
}

func (m *MinInterval) FetchLatestQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.Source.FetchLatestQuote(ctx, symbol)
}

func (m *MinInterval) FetchHistoricalSeries(ctx context.Context, symbol, rangeKey string) ([]models.OHLCVPoint, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.Source.FetchHistoricalSeries(ctx, symbol, rangeKey)
}

func (m *MinInterval) wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}

	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
