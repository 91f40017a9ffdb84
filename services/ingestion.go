package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stock_ingestion_backend/models"
	"stock_ingestion_backend/services/quotesource"
)

// Registry is the subset of the asset registry the engine depends on
type Registry interface {
	EnsureAsset(ctx context.Context, symbol string) (uint, error)
	ListSymbols(ctx context.Context) ([]string, error)
}

// PriceWriter is the subset of the price store the engine depends on
type PriceWriter interface {
	WriteDailyPrice(ctx context.Context, assetID uint, snap *models.QuoteSnapshot) WriteResult
	WriteHistoricalSeries(ctx context.Context, assetID uint, points []models.OHLCVPoint) (int64, error)
	Ping(ctx context.Context) error
}

var (
	_ Registry    = (*AssetRegistry)(nil)
	_ PriceWriter = (*PriceStore)(nil)
)

// OutcomeStatus is the terminal state of one symbol within a run
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// BatchOutcome is the per-symbol result of one ingestion attempt. It is
// reported and logged, never persisted.
type BatchOutcome struct {
	Symbol   string        `json:"symbol"`
	Status   OutcomeStatus `json:"status"`
	Records  int           `json:"records"`
	Inserted int64         `json:"inserted"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
}

func (o BatchOutcome) failed(err error) BatchOutcome {
	o.Status = OutcomeFailed
	o.Error = err.Error()
	o.Err = err
	return o
}

// RegistrationResult summarises an EnsureAssetsExist call
type RegistrationResult struct {
	Registered int      `json:"registered"`
	Failed     []string `json:"failed,omitempty"`
}

// Engine orchestrates fetch, normalize and store for one or many symbols.
// Symbols are processed strictly one at a time; the pacer delays between
// provider calls are the rate-limiting mechanism.
type Engine struct {
	registry Registry
	store    PriceWriter
	source   quotesource.Source
	pacer    Pacer
	pacing   PacingConfig
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPacer replaces the default sleeping pacer.
func WithPacer(p Pacer) EngineOption {
	return func(e *Engine) {
		e.pacer = p
	}
}

// WithPacing sets delays and batch sizes.
func WithPacing(cfg PacingConfig) EngineOption {
	return func(e *Engine) {
		e.pacing = cfg.withDefaults()
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine wires the ingestion engine to its collaborators
func NewEngine(registry Registry, store PriceWriter, source quotesource.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		store:    store,
		source:   source,
		pacer:    SleepPacer{},
		pacing:   DefaultPacing(),
		logger:   slog.Default().With("component", "ingestion"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pacing returns the engine's pacing configuration
func (e *Engine) Pacing() PacingConfig {
	return e.pacing
}

// EnsureAssetsExist registers each symbol, logging and skipping individual failures
func (e *Engine) EnsureAssetsExist(ctx context.Context, symbols []string) RegistrationResult {
	var res RegistrationResult
	for _, symbol := range symbols {
		if _, err := e.registry.EnsureAsset(ctx, symbol); err != nil {
			e.logger.Warn("failed to register asset", "symbol", symbol, "error", err)
			res.Failed = append(res.Failed, symbol)
			continue
		}
		res.Registered++
	}
	return res
}

// LoadHistoricalBatch ingests the historical series for each symbol in order.
// A failing symbol yields a failed outcome and the loop moves on; only
// cancellation of ctx ends the batch early, in which case the outcomes
// gathered so far are returned with the error.
func (e *Engine) LoadHistoricalBatch(ctx context.Context, symbols []string, rangeKey string) ([]BatchOutcome, error) {
	return e.loadHistoricalBatch(ctx, e.logger, symbols, rangeKey)
}

func (e *Engine) loadHistoricalBatch(ctx context.Context, logger *slog.Logger, symbols []string, rangeKey string) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, 0, len(symbols))
	for i, symbol := range symbols {
		if i > 0 {
			if err := e.pacer.Wait(ctx, e.pacing.SymbolDelay); err != nil {
				return outcomes, err
			}
		} else if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		out := e.loadHistorical(ctx, symbol, rangeKey)
		logOutcome(logger, out)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// loadHistorical registers, fetches and stores one symbol. Registration
// happens before the fetch, so a symbol with no provider data still ends up
// in the registry.
func (e *Engine) loadHistorical(ctx context.Context, symbol, rangeKey string) BatchOutcome {
	out := BatchOutcome{Symbol: outcomeSymbol(symbol)}

	assetID, err := e.registry.EnsureAsset(ctx, symbol)
	if err != nil {
		return out.failed(err)
	}

	points, err := e.source.FetchHistoricalSeries(ctx, out.Symbol, rangeKey)
	if err != nil {
		return out.failed(err)
	}

	inserted, err := e.store.WriteHistoricalSeries(ctx, assetID, points)
	if err != nil {
		return out.failed(err)
	}

	out.Status = OutcomeSuccess
	out.Records = len(points)
	out.Inserted = inserted
	return out
}

// IngestLatest records the latest quote for one symbol as today's price.
// A quote that was fetched but could not be written is a failed outcome.
func (e *Engine) IngestLatest(ctx context.Context, symbol string) BatchOutcome {
	out := BatchOutcome{Symbol: outcomeSymbol(symbol)}

	assetID, err := e.registry.EnsureAsset(ctx, symbol)
	if err != nil {
		return out.failed(err)
	}

	snap, err := e.source.FetchLatestQuote(ctx, out.Symbol)
	if err != nil {
		return out.failed(err)
	}

	res := e.store.WriteDailyPrice(ctx, assetID, snap)
	if !res.Persisted() {
		err := res.Err
		if err == nil {
			err = fmt.Errorf("daily price for %s not persisted", out.Symbol)
		}
		return out.failed(err)
	}

	out.Status = OutcomeSuccess
	out.Records = 1
	if res.Status == WriteInserted {
		out.Inserted = 1
	}
	return out
}

func outcomeSymbol(symbol string) string {
	if s := NormalizeSymbol(symbol); s != "" {
		return s
	}
	return symbol
}

func logOutcome(logger *slog.Logger, out BatchOutcome) {
	if out.Status == OutcomeFailed {
		logger.Warn("symbol failed", "symbol", out.Symbol, "error", out.Error)
		return
	}
	logger.Info("symbol processed", "symbol", out.Symbol, "records", out.Records, "inserted", out.Inserted)
}
