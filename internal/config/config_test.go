package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SINCERA_API_KEY", "")
	path := writeConfigFile(t, `{"warehouse_dsn": "user:pass@tcp(wh:3306)/analytics"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "user:pass@tcp(wh:3306)/analytics", cfg.WarehouseDSN)
	assert.Equal(t, "sql_queries.yaml", cfg.QueriesPath)
	assert.Equal(t, "https://open.sincera.io/api/publishers", cfg.APIBaseURL)
	assert.Equal(t, 45, cfg.RequestsPerMinute)
	assert.Equal(t, 5000, cfg.RequestsPerDay)
	assert.Equal(t, 30, cfg.RequestTimeoutSec)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 500, cfg.SamplePerNetwork)
	assert.Equal(t, 10, cfg.TestPerNetwork)
	assert.Equal(t, "internal", cfg.TrustedNetwork)
	assert.Equal(t, int64(42), cfg.SampleSeed)
	assert.Equal(t, "pipeline.db", cfg.DBPath)
	assert.Equal(t, "checkpoints", cfg.CheckpointDir)
}

func TestLoadConfigAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("SINCERA_API_KEY", "from-env")
	path := writeConfigFile(t, `{}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoadConfigExplicitKeyWinsOverEnv(t *testing.T) {
	t.Setenv("SINCERA_API_KEY", "from-env")
	path := writeConfigFile(t, `{"api_key": "from-file"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative batch size", `{"batch_size": -1}`},
		{"negative retries", `{"max_retries": -2}`},
		{"day budget below minute budget", `{"requests_per_minute": 100, "requests_per_day": 50}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, tc.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
