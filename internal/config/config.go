package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all runtime configuration parameters shared by the sampler
// and collector binaries
type Config struct {
	WarehouseDSN      string `json:"warehouse_dsn"`
	QueriesPath       string `json:"queries_path"`
	APIBaseURL        string `json:"api_base_url"`
	APIKey            string `json:"api_key"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	RequestsPerDay    int    `json:"requests_per_day"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	MaxRetries        int    `json:"max_retries"`
	BatchSize         int    `json:"batch_size"`
	SamplePerNetwork  int    `json:"sample_per_network"`
	TestPerNetwork    int    `json:"test_per_network"`
	TrustedNetwork    string `json:"trusted_network"`
	ExemptNetwork     string `json:"exempt_network"`
	SampleSeed        int64  `json:"sample_seed"`
	DBPath            string `json:"db_path"`
	CheckpointDir     string `json:"checkpoint_dir"`
	ResultsCSVPath    string `json:"results_csv_path"`
	MetricsPath       string `json:"metrics_path"`
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields. The API key
// falls back to the SINCERA_API_KEY environment variable.
func applyDefaults(cfg *Config) {
	if cfg.QueriesPath == "" {
		cfg.QueriesPath = "sql_queries.yaml"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://open.sincera.io/api/publishers"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("SINCERA_API_KEY")
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 45
	}
	if cfg.RequestsPerDay == 0 {
		cfg.RequestsPerDay = 5000
	}
	if cfg.RequestTimeoutSec == 0 {
		cfg.RequestTimeoutSec = 30
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.SamplePerNetwork == 0 {
		cfg.SamplePerNetwork = 500
	}
	if cfg.TestPerNetwork == 0 {
		cfg.TestPerNetwork = 10
	}
	if cfg.TrustedNetwork == "" {
		cfg.TrustedNetwork = "internal"
	}
	if cfg.SampleSeed == 0 {
		cfg.SampleSeed = 42
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "pipeline.db"
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = "checkpoints"
	}
	if cfg.ResultsCSVPath == "" {
		cfg.ResultsCSVPath = "sincera_metrics.csv"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "run_stats.json"
	}
}

// validate checks that values are sensible
func validate(cfg *Config) error {
	if cfg.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be >= 1")
	}
	if cfg.RequestsPerDay < cfg.RequestsPerMinute {
		return fmt.Errorf("requests_per_day must be >= requests_per_minute")
	}
	if cfg.RequestTimeoutSec < 1 {
		return fmt.Errorf("request_timeout_sec must be >= 1")
	}
	if cfg.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1")
	}
	if cfg.SamplePerNetwork < 1 {
		return fmt.Errorf("sample_per_network must be >= 1")
	}
	return nil
}
