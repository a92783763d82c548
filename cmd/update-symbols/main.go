// One-shot tool: download a fresh universe CSV from the exchange for one or
// all configured datasets.
//
// Usage:
//
//	go run cmd/update-symbols/main.go [-dataset tw]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"stockpulse/internal/config"
	"stockpulse/internal/universe"
	"stockpulse/internal/util"
)

func main() {
	godotenv.Load()

	key := flag.String("dataset", "", "dataset key to update (empty = all with a download source)")
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

	updated := 0
	for _, ds := range datasets {
		if ds.DownloadURL == "" {
			if *key != "" {
				log.Fatalf("dataset %s has no download source", ds.Key)
			}
			continue
		}

		if err := universe.Download(context.Background(), ds.DownloadURL, ds.UniverseCSV); err != nil {
			log.Fatalf("downloading universe for %s: %v", ds.Key, err)
		}
		records, err := universe.LoadCSV(ds.UniverseCSV)
		if err != nil {
			log.Fatalf("verifying universe for %s: %v", ds.Key, err)
		}
		logger.Info("universe updated", "dataset", ds.Key, "symbols", len(records))
		updated++
	}
	if updated == 0 {
		logger.Info("no datasets with a download source configured")
	}
}
