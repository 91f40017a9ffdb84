// Command bulkload backfills historical prices for a symbol universe.
//
//	go run ./scripts/bulkload -range 5y
//	go run ./scripts/bulkload -symbols AAPL,MSFT -range 1y
//	go run ./scripts/bulkload -file symbols.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stock_ingestion_backend/bootstrap"
	"stock_ingestion_backend/config"
	"stock_ingestion_backend/logger"
	"stock_ingestion_backend/services"
	"stock_ingestion_backend/services/quotesource"
)

func main() {
	rangeKey := flag.String("range", "", "history range key (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max)")
	symbolList := flag.String("symbols", "", "comma separated symbols, overrides the universe file")
	file := flag.String("file", "", "YAML universe file")
	asJSON := flag.Bool("json", false, "print the full summary as JSON")
	flag.Parse()

	cfg, err := config.LoadConfig()
	log := logger.Init(cfg.Environment)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if *rangeKey == "" {
		*rangeKey = cfg.HistoryRange
	}
	if !quotesource.IsKnownRange(*rangeKey) {
		log.Warn("Unknown range, falling back to default", "range", *rangeKey, "default", quotesource.DefaultRangeKey)
	}
	if *file == "" {
		*file = cfg.SymbolsFile
	}

	symbols, err := resolveSymbols(*symbolList, *file)
	if err != nil {
		log.Error("Could not resolve symbols", "error", err)
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

	log.Info("Bulk load starting", "symbols", len(symbols), "range", *rangeKey)
	summary, runErr := svc.Engine.RunBulkLoad(ctx, symbols, *rangeKey)
	if summary != nil {
		printSummary(summary, *asJSON)
	}
	if runErr != nil {
		log.Error("Bulk load aborted", "error", runErr)
		bootstrap.Close(svc.DB)
		os.Exit(1)
	}
}

func resolveSymbols(list, file string) ([]string, error) {
	switch {
	case list != "":
		symbols := services.UniqueSymbols(strings.Split(list, ","))
		if len(symbols) == 0 {
			return nil, fmt.Errorf("no symbols in %q", list)
		}
		return symbols, nil
	case file != "":
		return services.LoadUniverse(file)
	default:
		return services.DefaultUniverse, nil
	}
}

func printSummary(summary *services.BulkLoadSummary, asJSON bool) {
	fmt.Println("==============================================")
	fmt.Printf("  Bulk load %s: %s\n", summary.RunID, summary.Status)
	fmt.Println("==============================================")
	fmt.Printf("Range:            %s\n", summary.RangeKey)
	fmt.Printf("Symbols:          %d\n", summary.TotalSymbols)
	fmt.Printf("Registered:       %d\n", summary.Registered)
	fmt.Printf("Succeeded:        %d\n", summary.Succeeded)
	fmt.Printf("Failed:           %d\n", summary.Failed)
	fmt.Printf("Records:          %d (%d new)\n", summary.TotalRecords, summary.TotalInserted)
	fmt.Printf("Average/symbol:   %.1f\n", summary.AverageRecords)
	fmt.Printf("Duration:         %s\n", summary.Duration)
	if len(summary.FailedSymbols) > 0 {
		fmt.Printf("Failed symbols:   %s\n", strings.Join(summary.FailedSymbols, ", "))
	}

	if asJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
}
