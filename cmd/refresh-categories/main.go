// One-shot tool: run (or resume) the category refresh for one or all
// configured datasets.
//
// Usage:
//
//	go run cmd/refresh-categories/main.go [-dataset us]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockpulse/internal/config"
	"stockpulse/internal/quote"
	"stockpulse/internal/refresh"
	"stockpulse/internal/universe"
	"stockpulse/internal/util"
)

func main() {
	godotenv.Load()

	key := flag.String("dataset", "", "dataset key to refresh (empty = all)")
	flag.Parse()

	cfgPath := "config/stockpulse.yaml"
	if p := os.Getenv("STOCKPULSE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	datasets := cfg.Refresh.Datasets
	if *key != "" {
		ds := cfg.DatasetByKey(*key)
		if ds == nil {
			log.Fatalf("unknown dataset %q", *key)
		}
		datasets = []config.Dataset{*ds}
	}
	if len(datasets) == 0 {
		log.Fatal("no datasets configured")
	}

	quotes := quote.NewClient(quote.Options{
		BaseURL:    cfg.Provider.BaseURL,
		Timeout:    time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Refresh.MaxRetries,
		BaseDelay:  time.Duration(cfg.Refresh.BaseDelaySeconds) * time.Second,
		PerMinute:  cfg.Provider.RatePerMinute,
	})
	progress := refresh.NewProgressStore(cfg.Storage.DataDir)
	cache := refresh.NewFreshnessCache(cfg.Storage.DataDir, time.Duration(cfg.Refresh.CacheTTLHours)*time.Hour)
	refresher := refresh.NewOrchestrator(quotes, progress, cache, refresh.Options{
		BatchSize:  cfg.Refresh.BatchSize,
		MaxWorkers: cfg.Refresh.MaxWorkers,
		BatchDelay: time.Duration(cfg.Refresh.BatchDelaySecs) * time.Second,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, ds := range datasets {
		records, err := universe.LoadCSV(ds.UniverseCSV)
		if err != nil {
			log.Fatalf("loading universe for %s: %v", ds.Key, err)
		}

		data, err := refresher.Refresh(ctx, refresh.Dataset{
			Key:     ds.Key,
			Symbols: universe.Symbols(records),
			Suffix:  ds.SymbolSuffix,
		})
		if err != nil {
			log.Fatalf("refreshing %s: %v", ds.Key, err)
		}
		logger.Info("dataset refreshed", "dataset", ds.Key, "symbols", len(data))
	}
}
