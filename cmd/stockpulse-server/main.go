package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/joho/godotenv"

	"stockpulse/internal/config"
	"stockpulse/internal/httpapi"
	"stockpulse/internal/quote"
	"stockpulse/internal/refresh"
	"stockpulse/internal/sentiment"
	"stockpulse/internal/store"
	"stockpulse/internal/util"
)

func main() {
	godotenv.Load()

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

	bars := store.NewParquetStore(cfg.Storage.DataDir)

	users, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening user store: %v", err)
	}
	defer users.Close()

	// News sources: Alpaca only when credentials are configured, RSS always.
	var alpacaMD *marketdata.Client
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		alpacaMD = marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.DataURL,
		})
	} else {
		logger.Info("alpaca credentials not set, news sentiment uses RSS only")
	}
	news := sentiment.NewFetcher(alpacaMD)

	api := httpapi.NewServer(quotes, refresher, cfg.Refresh.Datasets, bars, users, news, cfg.Watchlist)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("stockpulse server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
