package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"stock_ingestion_backend/models"
	"stock_ingestion_backend/services/quotesource"
)

type engineFixture struct {
	db       *gorm.DB
	registry *AssetRegistry
	store    *PriceStore
	source   *quotesource.MockSource
	pacer    *fakePacer
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := newTestDB(t)
	f := &engineFixture{
		db:       db,
		registry: NewAssetRegistry(db),
		store:    NewPriceStore(db),
		source:   quotesource.NewMockSource(gomock.NewController(t)),
		pacer:    newFakePacer(),
	}
	f.engine = NewEngine(f.registry, f.store, f.source, WithPacer(f.pacer), WithPacing(DefaultPacing()))
	return f
}

func TestLoadHistoricalBatch_ContinuesPastFailures(t *testing.T) {
	f := newEngineFixture(t)
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	gomock.InOrder(
		f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), "AAPL", "5y").Return(points(3, start), nil),
		f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), "ZZZZ", "5y").Return(nil, &quotesource.NotFoundError{Symbol: "ZZZZ"}),
		f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), "MSFT", "5y").Return(points(2, start), nil),
	)

	outcomes, err := f.engine.LoadHistoricalBatch(t.Context(), []string{"AAPL", "ZZZZ", "MSFT"}, "5y")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	require.Equal(t, "AAPL", outcomes[0].Symbol)
	require.Equal(t, OutcomeSuccess, outcomes[0].Status)
	require.Equal(t, 3, outcomes[0].Records)
	require.Equal(t, int64(3), outcomes[0].Inserted)

	// ZZZZ fails with a not-found message but is still registered.
	require.Equal(t, "ZZZZ", outcomes[1].Symbol)
	require.Equal(t, OutcomeFailed, outcomes[1].Status)
	require.Contains(t, outcomes[1].Error, "no quote data found for ZZZZ")
	require.True(t, quotesource.IsNotFound(outcomes[1].Err))
	require.Zero(t, countPrices(t, f.db, "ZZZZ"))
	symbols, err := f.registry.ListSymbols(t.Context())
	require.NoError(t, err)
	require.Contains(t, symbols, "ZZZZ")

	require.Equal(t, "MSFT", outcomes[2].Symbol)
	require.Equal(t, OutcomeSuccess, outcomes[2].Status)
	require.Equal(t, 2, outcomes[2].Records)
}

func TestLoadHistoricalBatch_PacesBetweenFetches(t *testing.T) {
	f := newEngineFixture(t)
	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN"}

	var mu sync.Mutex
	var fetchedAt []time.Time
	f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), gomock.Any(), "1y").
		DoAndReturn(func(context.Context, string, string) ([]models.OHLCVPoint, error) {
			mu.Lock()
			fetchedAt = append(fetchedAt, f.pacer.Now())
			mu.Unlock()
			return nil, nil
		}).
		Times(len(symbols))

	outcomes, err := f.engine.LoadHistoricalBatch(t.Context(), symbols, "1y")
	require.NoError(t, err)
	require.Len(t, outcomes, len(symbols))

	require.Len(t, fetchedAt, len(symbols))
	for i := 1; i < len(fetchedAt); i++ {
		require.GreaterOrEqual(t, fetchedAt[i].Sub(fetchedAt[i-1]), f.engine.Pacing().SymbolDelay)
	}
	// No wait before the first symbol or after the last.
	require.Len(t, f.pacer.Waits(), len(symbols)-1)
}

func TestLoadHistoricalBatch_IdempotentReload(t *testing.T) {
	f := newEngineFixture(t)
	series := points(5, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), "AAPL", "1y").Return(series, nil).Times(2)

	first, err := f.engine.LoadHistoricalBatch(t.Context(), []string{"AAPL"}, "1y")
	require.NoError(t, err)
	require.Equal(t, int64(5), first[0].Inserted)

	second, err := f.engine.LoadHistoricalBatch(t.Context(), []string{"AAPL"}, "1y")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, second[0].Status)
	require.Equal(t, 5, second[0].Records)
	require.Zero(t, second[0].Inserted)

	require.Equal(t, int64(5), countPrices(t, f.db, "AAPL"))
	n, err := f.registry.Count(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestLoadHistoricalBatch_CancelledRunReturnsPartialOutcomes(t *testing.T) {
	f := newEngineFixture(t)
	ctx, cancel := context.WithCancel(t.Context())

	f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), "AAPL", "1y").
		DoAndReturn(func(context.Context, string, string) ([]models.OHLCVPoint, error) {
			cancel()
			return nil, nil
		})

	outcomes, err := f.engine.LoadHistoricalBatch(ctx, []string{"AAPL", "MSFT"}, "1y")
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 1)
	require.Equal(t, "AAPL", outcomes[0].Symbol)
}

func TestIngestLatest_StoresSnapshotAsDailyPrice(t *testing.T) {
	f := newEngineFixture(t)
	callTime := time.Date(2026, 3, 2, 21, 30, 4, 0, time.UTC)
	f.store.now = func() time.Time { return callTime }

	f.source.EXPECT().FetchLatestQuote(gomock.Any(), "AAPL").
		Return(&models.QuoteSnapshot{Symbol: "AAPL", Price: 150.25, Volume: 42}, nil)

	out := f.engine.IngestLatest(t.Context(), "AAPL")
	require.Equal(t, OutcomeSuccess, out.Status)
	require.Equal(t, int64(1), out.Inserted)

	var rows []models.Price
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Date.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	want := decimal.NewFromFloat(150.25)
	for _, v := range []decimal.Decimal{rows[0].Open, rows[0].High, rows[0].Low, rows[0].Close} {
		require.True(t, v.Equal(want), "got %s", v)
	}
}

// failingWriter persists nothing
type failingWriter struct {
	pingErr error
}

func (w failingWriter) WriteDailyPrice(context.Context, uint, *models.QuoteSnapshot) WriteResult {
	return WriteResult{Status: WriteFailed, Err: &StorageError{Op: "write daily price", Err: errors.New("disk full")}}
}

func (w failingWriter) WriteHistoricalSeries(context.Context, uint, []models.OHLCVPoint) (int64, error) {
	return 0, &StorageError{Op: "write historical series", Err: errors.New("disk full")}
}

func (w failingWriter) Ping(context.Context) error {
	return w.pingErr
}

func TestIngestLatest_UnpersistedWriteIsFailure(t *testing.T) {
	f := newEngineFixture(t)
	engine := NewEngine(f.registry, failingWriter{}, f.source, WithPacer(f.pacer))

	f.source.EXPECT().FetchLatestQuote(gomock.Any(), "AAPL").
		Return(&models.QuoteSnapshot{Symbol: "AAPL", Price: 1}, nil)

	out := engine.IngestLatest(t.Context(), "AAPL")
	require.Equal(t, OutcomeFailed, out.Status)
	require.True(t, IsStorageError(out.Err))
	require.Contains(t, out.Error, "disk full")
}

func TestRunBulkLoad_BatchesAndSummary(t *testing.T) {
	f := newEngineFixture(t)
	universe := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10", "A11", "BAD", "a1"}
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	f.source.EXPECT().FetchHistoricalSeries(gomock.Any(), gomock.Any(), "5y").
		DoAndReturn(func(_ context.Context, symbol, _ string) ([]models.OHLCVPoint, error) {
			if symbol == "BAD" {
				return nil, &quotesource.UpstreamError{Symbol: symbol, StatusCode: 500, Err: errors.New("boom")}
			}
			return points(4, start), nil
		}).
		Times(12)

	summary, err := f.engine.RunBulkLoad(t.Context(), universe, "5y")
	require.NoError(t, err)

	require.Equal(t, RunCompleted, summary.Status)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, "5y", summary.RangeKey)
	require.Equal(t, 12, summary.TotalSymbols)
	require.Equal(t, 12, summary.Registered)
	require.Equal(t, 11, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, []string{"BAD"}, summary.FailedSymbols)
	require.Equal(t, 44, summary.TotalRecords)
	require.Equal(t, int64(44), summary.TotalInserted)
	require.InDelta(t, 4.0, summary.AverageRecords, 1e-9)
	require.Len(t, summary.Outcomes, 12)

	// 12 symbols: registration batches of 10 (one pause), history batches
	// of 5,5,2 (two batch pauses, symbol delays inside each batch).
	s, b, r := time.Second, 3*time.Second, time.Second
	require.Equal(t, []time.Duration{
		r,
		s, s, s, s,
		b,
		s, s, s, s,
		b,
		s,
	}, f.pacer.Waits())
}

func TestRunBulkLoad_StorageDownIsFatal(t *testing.T) {
	f := newEngineFixture(t)
	engine := NewEngine(f.registry, failingWriter{pingErr: &StorageError{Op: "ping", Err: errors.New("refused")}}, f.source, WithPacer(f.pacer))

	summary, err := engine.RunBulkLoad(t.Context(), []string{"AAPL"}, "5y")
	require.Error(t, err)
	require.True(t, IsStorageError(err))
	require.Equal(t, RunAborted, summary.Status)
	require.Empty(t, summary.Outcomes)
}

func TestRunDailyClose_AllRegisteredSymbols(t *testing.T) {
	f := newEngineFixture(t)
	for _, s := range []string{"MSFT", "AAPL", "DEAD"} {
		_, err := f.registry.EnsureAsset(t.Context(), s)
		require.NoError(t, err)
	}

	f.source.EXPECT().FetchLatestQuote(gomock.Any(), "AAPL").Return(&models.QuoteSnapshot{Symbol: "AAPL", Price: 150.25}, nil)
	f.source.EXPECT().FetchLatestQuote(gomock.Any(), "DEAD").Return(nil, &quotesource.NotFoundError{Symbol: "DEAD"})
	f.source.EXPECT().FetchLatestQuote(gomock.Any(), "MSFT").Return(&models.QuoteSnapshot{Symbol: "MSFT", Price: 410}, nil)

	summary, err := f.engine.RunDailyClose(t.Context())
	require.NoError(t, err)
	require.Equal(t, RunCompleted, summary.Status)
	require.Equal(t, 3, summary.TotalSymbols)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, []string{"DEAD"}, summary.FailedSymbols)
	require.Equal(t, []time.Duration{time.Second, time.Second}, f.pacer.Waits())

	require.Equal(t, int64(1), countPrices(t, f.db, "AAPL"))
	require.Equal(t, int64(1), countPrices(t, f.db, "MSFT"))
	require.Zero(t, countPrices(t, f.db, "DEAD"))
}

// The full path through the real chart client: null-open points are not stored.
func TestLoadHistoricalBatch_WithChartClientDropsNullOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{
					"meta":      map[string]any{"symbol": "IBM", "regularMarketPrice": 190.0},
					"timestamp": []int64{1700000000, 1700604800, 1701209600, 1701814400, 1702419200, 1703024000},
					"indicators": map[string]any{"quote": []any{map[string]any{
						"open":   []any{1.0, nil, 3.0, nil, 5.0, 6.0},
						"high":   []any{1.0, nil, 3.0, nil, 5.0, 6.0},
						"low":    []any{1.0, nil, 3.0, nil, 5.0, 6.0},
						"close":  []any{1.0, nil, 3.0, nil, 5.0, 6.0},
						"volume": []any{1, nil, 3, nil, 5, 6},
					}}},
				}},
				"error": nil,
			},
		})
	}))
	defer server.Close()

	db := newTestDB(t)
	client := quotesource.NewClient(server.URL, quotesource.WithRetries(0, time.Millisecond))
	engine := NewEngine(NewAssetRegistry(db), NewPriceStore(db), client, WithPacer(newFakePacer()))

	outcomes, err := engine.LoadHistoricalBatch(t.Context(), []string{"IBM"}, "5y")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcomes[0].Status)
	require.Equal(t, 4, outcomes[0].Records)
	require.Equal(t, int64(4), countPrices(t, db, "IBM"))
}

func TestEnsureAssetsExist_SkipsInvalidSymbols(t *testing.T) {
	f := newEngineFixture(t)

	res := f.engine.EnsureAssetsExist(t.Context(), []string{"AAPL", "  ", "msft", "AAPL"})
	require.Equal(t, 3, res.Registered)
	require.Equal(t, []string{"  "}, res.Failed)

	symbols, err := f.registry.ListSymbols(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}
