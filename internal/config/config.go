package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stockpulse backend.
type Config struct {
	Storage   Storage       `yaml:"storage"`
	Server    Server        `yaml:"server"`
	Provider  Provider      `yaml:"provider"`
	Alpaca    Alpaca        `yaml:"alpaca"`
	Logging   Logging       `yaml:"logging"`
	Refresh   RefreshConfig `yaml:"refresh"`
	Watchlist []string      `yaml:"watchlist"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Provider holds the upstream quote provider endpoint. An empty base URL
// selects the public Yahoo-compatible endpoints.
type Provider struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RatePerMinute  int    `yaml:"rate_per_minute"`
}

// Alpaca holds credentials for the Alpaca market-data API, used as the US
// news source for sentiment scoring.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RefreshConfig controls the categorized-stock-list refresh pipeline.
type RefreshConfig struct {
	BatchSize        int       `yaml:"batch_size"`
	MaxWorkers       int       `yaml:"max_workers"`
	MaxRetries       int       `yaml:"max_retries"`
	BaseDelaySeconds int       `yaml:"base_delay_seconds"`
	BatchDelaySecs   int       `yaml:"batch_delay_seconds"`
	CacheTTLHours    int       `yaml:"cache_ttl_hours"`
	Datasets         []Dataset `yaml:"datasets"`
}

// Dataset describes one logical category dataset (e.g. "us", "tw"): which
// universe CSV feeds it and how its tickers are qualified for the provider.
type Dataset struct {
	Key          string `yaml:"key"`
	UniverseCSV  string `yaml:"universe_csv"`
	SymbolSuffix string `yaml:"symbol_suffix"`
	DownloadURL  string `yaml:"download_url"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-valued pipeline knobs with the design defaults.
func applyDefaults(cfg *Config) {
	if cfg.Refresh.BatchSize == 0 {
		cfg.Refresh.BatchSize = 100
	}
	if cfg.Refresh.MaxWorkers == 0 {
		cfg.Refresh.MaxWorkers = 10
	}
	if cfg.Refresh.MaxRetries == 0 {
		cfg.Refresh.MaxRetries = 10
	}
	if cfg.Refresh.BaseDelaySeconds == 0 {
		cfg.Refresh.BaseDelaySeconds = 2
	}
	if cfg.Refresh.BatchDelaySecs == 0 {
		cfg.Refresh.BatchDelaySecs = 10
	}
	if cfg.Refresh.CacheTTLHours == 0 {
		cfg.Refresh.CacheTTLHours = 24
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 10
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// The canonical Alpaca names take precedence over our own.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// DatasetByKey returns the dataset with the given key, or nil.
func (c *Config) DatasetByKey(key string) *Dataset {
	for i := range c.Refresh.Datasets {
		if c.Refresh.Datasets[i].Key == key {
			return &c.Refresh.Datasets[i]
		}
	}
	return nil
}
