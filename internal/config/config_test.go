package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("ARCGIS_MAX_RETRIES", "")
	t.Setenv("ARCGIS_CANCEL_SUPERSEDED", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0, cfg.ArcGIS.MaxRetries)
	assert.False(t, cfg.ArcGIS.CancelSuperseded)
	assert.True(t, cfg.Database.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("ARCGIS_PORTAL_URL", "https://portal.example.com")
	t.Setenv("ARCGIS_MAX_RETRIES", "3")
	t.Setenv("ARCGIS_CANCEL_SUPERSEDED", "true")
	t.Setenv("DB_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "https://portal.example.com", cfg.ArcGIS.PortalURL)
	assert.Equal(t, 3, cfg.ArcGIS.MaxRetries)
	assert.True(t, cfg.ArcGIS.CancelSuperseded)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("ARCGIS_MAX_RETRIES", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.ArcGIS.MaxRetries)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "localhost", Port: "5432",
		User: "postgres", Password: "postgres",
		DBName: "drive_time_analysis", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=drive_time_analysis sslmode=disable",
		c.DSN())
}
