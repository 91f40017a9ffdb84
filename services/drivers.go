package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stock_ingestion_backend/services/quotesource"
)

// RunStatus tracks a run through PENDING -> PROCESSING -> COMPLETED, or
// ABORTED when a run-level error ends it early.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunAborted    RunStatus = "aborted"
)

// RunSummary aggregates the outcomes of one driver run
type RunSummary struct {
	RunID         string         `json:"run_id"`
	Status        RunStatus      `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Duration      string         `json:"duration"`
	TotalSymbols  int            `json:"total_symbols"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	FailedSymbols []string       `json:"failed_symbols,omitempty"`
	TotalRecords  int            `json:"total_records"`
	TotalInserted int64          `json:"total_inserted"`
	Outcomes      []BatchOutcome `json:"outcomes"`
}

func (s *RunSummary) record(outcomes ...BatchOutcome) {
	for _, out := range outcomes {
		s.Outcomes = append(s.Outcomes, out)
		if out.Status == OutcomeFailed {
			s.Failed++
			s.FailedSymbols = append(s.FailedSymbols, out.Symbol)
			continue
		}
		s.Succeeded++
		s.TotalRecords += out.Records
		s.TotalInserted += out.Inserted
	}
}

func (s *RunSummary) finish(status RunStatus, now time.Time) {
	s.Status = status
	s.FinishedAt = now
	s.Duration = now.Sub(s.StartedAt).Round(time.Millisecond).String()
}

// BulkLoadSummary is the report of a manual historical backfill
type BulkLoadSummary struct {
	RunSummary
	RangeKey           string   `json:"range"`
	Registered         int      `json:"registered"`
	RegistrationFailed []string `json:"registration_failed,omitempty"`
	AverageRecords     float64  `json:"average_records"`
}

// DailyCloseSummary is the report of a market-close ingestion.
// Processed counts the symbols whose close was stored.
type DailyCloseSummary struct {
	RunSummary
	Processed int `json:"processed"`
}

// RunBulkLoad backfills history for a symbol universe. Assets are registered
// first in small batches, then history is pulled in smaller batches with a
// longer pause between them.
func (e *Engine) RunBulkLoad(ctx context.Context, symbols []string, rangeKey string) (*BulkLoadSummary, error) {
	spec := quotesource.ResolveRange(rangeKey)
	summary := &BulkLoadSummary{
		RunSummary: RunSummary{
			RunID:     uuid.NewString(),
			Status:    RunPending,
			StartedAt: e.now(),
		},
		RangeKey: spec.Key,
	}
	logger := e.logger.With("run_id", summary.RunID, "run", "bulk_load")

	if err := e.store.Ping(ctx); err != nil {
		summary.finish(RunAborted, e.now())
		return summary, fmt.Errorf("bulk load: %w", err)
	}

	symbols = UniqueSymbols(symbols)
	summary.TotalSymbols = len(symbols)
	summary.Status = RunProcessing
	logger.Info("bulk load started", "symbols", len(symbols), "range", spec.Range, "interval", spec.Interval)

	regBatches := chunk(symbols, e.pacing.RegisterBatchSize)
	for i, batch := range regBatches {
		if i > 0 {
			if err := e.pacer.Wait(ctx, e.pacing.RegisterPause); err != nil {
				summary.finish(RunAborted, e.now())
				return summary, fmt.Errorf("bulk load registration: %w", err)
			}
		}
		res := e.EnsureAssetsExist(ctx, batch)
		summary.Registered += res.Registered
		summary.RegistrationFailed = append(summary.RegistrationFailed, res.Failed...)
		logger.Info("registration batch complete", "batch", i+1, "of", len(regBatches), "registered", res.Registered)
	}

	histBatches := chunk(symbols, e.pacing.HistoryBatchSize)
	for i, batch := range histBatches {
		if i > 0 {
			logger.Debug("pausing between batches", "pause", e.pacing.BatchPause)
			if err := e.pacer.Wait(ctx, e.pacing.BatchPause); err != nil {
				summary.finish(RunAborted, e.now())
				return summary, fmt.Errorf("bulk load: %w", err)
			}
		}

		logger.Info("processing batch", "batch", i+1, "of", len(histBatches), "symbols", batch)
		outcomes, err := e.loadHistoricalBatch(ctx, logger, batch, spec.Key)
		summary.record(outcomes...)
		if err != nil {
			summary.finish(RunAborted, e.now())
			return summary, fmt.Errorf("bulk load: %w", err)
		}
	}

	if summary.Succeeded > 0 {
		summary.AverageRecords = float64(summary.TotalRecords) / float64(summary.Succeeded)
	}
	summary.finish(RunCompleted, e.now())

	logger.Info("bulk load completed",
		"total", summary.TotalSymbols,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"records", summary.TotalRecords,
		"inserted", summary.TotalInserted,
		"avg_records", summary.AverageRecords,
		"duration", summary.Duration,
	)
	return summary, nil
}

// RunDailyClose stores the latest quote for every registered symbol, pacing
// between symbols. There are no sub-batch pauses.
func (e *Engine) RunDailyClose(ctx context.Context) (*DailyCloseSummary, error) {
	summary := &DailyCloseSummary{
		RunSummary: RunSummary{
			RunID:     uuid.NewString(),
			Status:    RunPending,
			StartedAt: e.now(),
		},
	}
	logger := e.logger.With("run_id", summary.RunID, "run", "daily_close")

	if err := e.store.Ping(ctx); err != nil {
		summary.finish(RunAborted, e.now())
		return summary, fmt.Errorf("daily close: %w", err)
	}

	symbols, err := e.registry.ListSymbols(ctx)
	if err != nil {
		summary.finish(RunAborted, e.now())
		return summary, fmt.Errorf("daily close: %w", err)
	}

	summary.TotalSymbols = len(symbols)
	summary.Status = RunProcessing
	logger.Info("daily close started", "symbols", len(symbols))

	for i, symbol := range symbols {
		if i > 0 {
			if err := e.pacer.Wait(ctx, e.pacing.SymbolDelay); err != nil {
				summary.Processed = summary.Succeeded
				summary.finish(RunAborted, e.now())
				return summary, fmt.Errorf("daily close: %w", err)
			}
		}
		out := e.IngestLatest(ctx, symbol)
		logOutcome(logger, out)
		summary.record(out)
	}

	summary.Processed = summary.Succeeded
	summary.finish(RunCompleted, e.now())

	logger.Info("daily close completed",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"inserted", summary.TotalInserted,
		"duration", summary.Duration,
	)
	return summary, nil
}
