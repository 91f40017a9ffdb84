package services

import (
	"context"
	"time"
)

// Pacer is the throttling primitive between provider calls
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer blocks for the full duration unless ctx ends first
type SleepPacer struct{}

func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// PacingConfig holds the delays and batch sizes used to stay under provider rate limits
type PacingConfig struct {
	SymbolDelay       time.Duration `json:"symbol_delay"`
	BatchPause        time.Duration `json:"batch_pause"`
	RegisterPause     time.Duration `json:"register_pause"`
	RegisterBatchSize int           `json:"register_batch_size"`
	HistoryBatchSize  int           `json:"history_batch_size"`
}

// DefaultPacing returns the reference pacing: 1s between symbols, 3s between
// history batches of 5, 1s between registration batches of 10.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		SymbolDelay:       1 * time.Second,
		BatchPause:        3 * time.Second,
		RegisterPause:     1 * time.Second,
		RegisterBatchSize: 10,
		HistoryBatchSize:  5,
	}
}

func (p PacingConfig) withDefaults() PacingConfig {
	d := DefaultPacing()
	if p.RegisterBatchSize <= 0 {
		p.RegisterBatchSize = d.RegisterBatchSize
	}
	if p.HistoryBatchSize <= 0 {
		p.HistoryBatchSize = d.HistoryBatchSize
	}
	return p
}

// chunk splits symbols into consecutive groups of at most size
func chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}
