package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// go test -v --run TestLoadFromFile
func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: ws://feed.local:9000/ws
  client_id: bench-7
reporter:
  interval: 2s
  sample_every: 500
redis:
  enabled: true
  channel: bench
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://feed.local:9000/ws", cfg.Feed.URL)
	assert.Equal(t, "bench-7", cfg.Feed.ClientID)
	assert.Equal(t, 2*time.Second, cfg.Reporter.Interval)
	assert.Equal(t, uint64(500), cfg.Reporter.SampleEvery)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "bench", cfg.Redis.Channel)

	// defaults fill the rest
	assert.Equal(t, 5*time.Second, cfg.Feed.WriteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

// go test -v --run TestLoadEnvOverride
func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "feed:\n  url: ws://file/ws\n")
	t.Setenv("FEED_URL", "ws://env/ws")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://env/ws", cfg.Feed.URL)
}

// go test -v --run TestLoadGeneratesClientID
func TestLoadGeneratesClientID(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: dev\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cfg.Feed.ClientID, "tickbench-"))
}

// go test -v --run TestLoadMissingExplicitFile
func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// go test -v --run TestValidate
func TestValidate(t *testing.T) {
	cfg := Config{
		Feed:     FeedConfig{URL: "ws://x"},
		Reporter: ReporterConfig{Interval: time.Second, SampleEvery: 1000},
	}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Reporter.SampleEvery = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Reporter.Interval = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Feed.URL = ""
	assert.Error(t, bad.Validate())
}

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "tickbench",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=tickbench sslmode=disable TimeZone=UTC",
		cfg.DSN("dev"))

	cfg.TimeZone = ""
	assert.NotContains(t, cfg.DSN("dev"), "TimeZone")
}
