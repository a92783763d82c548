package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockpulse.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/stockpulse/data"
  sqlite_path: "/tmp/stockpulse/stockpulse.db"
server:
  host: "0.0.0.0"
  port: 8080
provider:
  base_url: "http://localhost:9999"
  timeout_seconds: 5
logging:
  level: "debug"
refresh:
  batch_size: 50
  max_workers: 4
  datasets:
    - key: "us"
      universe_csv: "data/us_listed.csv"
    - key: "tw"
      universe_csv: "data/twse_listed_stocks.csv"
      symbol_suffix: ".TW"
watchlist: ["AAPL", "MSFT"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Storage.DataDir != "/tmp/stockpulse/data" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Refresh.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Refresh.BatchSize)
	}
	if cfg.Refresh.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.Refresh.MaxWorkers)
	}
	if len(cfg.Watchlist) != 2 {
		t.Errorf("Watchlist = %v", cfg.Watchlist)
	}

	ds := cfg.DatasetByKey("tw")
	if ds == nil {
		t.Fatal("DatasetByKey(tw) = nil")
	}
	if ds.SymbolSuffix != ".TW" {
		t.Errorf("SymbolSuffix = %q, want .TW", ds.SymbolSuffix)
	}
	if cfg.DatasetByKey("jp") != nil {
		t.Error("DatasetByKey(jp) should be nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/stockpulse/data"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Refresh.BatchSize != 100 {
		t.Errorf("default BatchSize = %d, want 100", cfg.Refresh.BatchSize)
	}
	if cfg.Refresh.MaxWorkers != 10 {
		t.Errorf("default MaxWorkers = %d, want 10", cfg.Refresh.MaxWorkers)
	}
	if cfg.Refresh.MaxRetries != 10 {
		t.Errorf("default MaxRetries = %d, want 10", cfg.Refresh.MaxRetries)
	}
	if cfg.Refresh.BatchDelaySecs != 10 {
		t.Errorf("default BatchDelaySecs = %d, want 10", cfg.Refresh.BatchDelaySecs)
	}
	if cfg.Refresh.CacheTTLHours != 24 {
		t.Errorf("default CacheTTLHours = %d, want 24", cfg.Refresh.CacheTTLHours)
	}
	if cfg.Provider.TimeoutSeconds != 10 {
		t.Errorf("default TimeoutSeconds = %d, want 10", cfg.Provider.TimeoutSeconds)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/from/yaml"
`)

	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PROVIDER_BASE_URL", "http://override:1234")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("DataDir = %q, want /from/env", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Provider.BaseURL != "http://override:1234" {
		t.Errorf("BaseURL = %q", cfg.Provider.BaseURL)
	}
}
