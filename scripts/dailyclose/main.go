// Command dailyclose stores the latest close for every registered symbol once,
// outside the scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stock_ingestion_backend/bootstrap"
	"stock_ingestion_backend/config"
	"stock_ingestion_backend/logger"
	"stock_ingestion_backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	log := logger.Init(cfg.Environment)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	svc, err := bootstrap.Open(cfg, log)
	if err != nil {
		log.Error("Storage initialization failed", "error", err)
		os.Exit(1)
	}
	defer bootstrap.Close(svc.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, runErr := svc.Engine.RunDailyClose(ctx)
	if summary != nil {
		printSummary(summary)
	}
	if runErr != nil {
		log.Error("Daily close aborted", "error", runErr)
		bootstrap.Close(svc.DB)
		os.Exit(1)
	}
}

func printSummary(summary *services.DailyCloseSummary) {
	fmt.Printf("Daily close %s: %s\n", summary.RunID, summary.Status)
	fmt.Printf("Processed %d of %d symbols, %d failed, %d new rows in %s\n",
		summary.Processed, summary.TotalSymbols, summary.Failed, summary.TotalInserted, summary.Duration)
	if len(summary.FailedSymbols) > 0 {
		fmt.Printf("Failed symbols: %s\n", strings.Join(summary.FailedSymbols, ", "))
	}
}
