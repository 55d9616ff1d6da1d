package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sdi-exam/roster/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: t.Parallel() is intentionally omitted in this package.
// These tests share process-global environment variables.

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.HTTPSPort)
	assert.Equal(t, "roster", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.TraceSampleRatio)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.MetricInterval)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Database.TrustServerCertificate)
	assert.False(t, cfg.Seed.ResetCharacters)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "CHARACTER_EVENTS", cfg.Events.Stream)
	assert.Empty(t, cfg.ConnectionStrings.DefaultConnection)

	// With nothing configured, startup has no database to connect to.
	_, err = database.ResolveConnString(cfg.Database.URL, cfg.ConnectionStrings.DefaultConnection, database.TLSOptions{})
	assert.ErrorIs(t, err, database.ErrNoConnection)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROSTER_SERVER_PORT", "9090")
	t.Setenv("ROSTER_SEED_RESET_CHARACTERS", "true")
	t.Setenv("ROSTER_CONNECTION_STRINGS_DEFAULT_CONNECTION", "host=db dbname=roster")
	t.Setenv("ROSTER_ENVIRONMENT", "Development")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/roster")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Seed.ResetCharacters)
	assert.Equal(t, "host=db dbname=roster", cfg.ConnectionStrings.DefaultConnection)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "postgres://u:p@db:5432/roster", cfg.Database.URL)
}

func TestLoad_AppEnvFallback(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `
environment: development
connection_strings:
  default_connection: "host=file-db dbname=roster"
cors:
  allow_origins:
    - https://game.example
cache:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "host=file-db dbname=roster", cfg.ConnectionStrings.DefaultConnection)
	assert.Equal(t, []string{"https://game.example"}, cfg.CORS.AllowOrigins)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvIsolation(t *testing.T) {
	require.Empty(t, os.Getenv("ROSTER_SERVER_PORT"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Seed.ResetCharacters)
	assert.Contains(t, cfg.ConnectionStrings.DefaultConnection, "dbname=roster")
	assert.Equal(t, 30*time.Second, cfg.Telemetry.MetricInterval)
}
