package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelview/internal/config"
)

func TestMain(m *testing.M) {
	os.Setenv("PIXELVIEW_ENV", "test")
	os.Exit(m.Run())
}

func TestGetConfigDefaults(t *testing.T) {
	config.Reset()
	cfg := config.GetConfig()

	assert.Equal(t, "pixelview", cfg.AppName)
	assert.Equal(t, "4000", cfg.GetPort())
	assert.Equal(t, config.Test, cfg.Environment)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, config.SQLiteDatabase, cfg.DatabaseType)
	assert.Equal(t, config.IPStrategyLeftmost, cfg.ClientIPStrategy)
	assert.Equal(t, 5000, cfg.ViewsPageSize)
	assert.Equal(t, 0, cfg.ViewsRetentionDays)
}

func TestGetConfigEnvOverrides(t *testing.T) {
	t.Setenv("PIXELVIEW_CLIENT_IP_STRATEGY", "rightmost")
	t.Setenv("PIXELVIEW_VIEWS_PAGE_SIZE", "100")
	t.Setenv("PIXELVIEW_VIEWS_RETENTION_DAYS", "90")
	config.Reset()
	t.Cleanup(config.Reset)

	cfg := config.GetConfig()
	assert.Equal(t, config.IPStrategyRightmost, cfg.ClientIPStrategy)
	assert.Equal(t, 100, cfg.ViewsPageSize)
	assert.Equal(t, 90, cfg.ViewsRetentionDays)
}

func TestBlacklistedReferrerHosts(t *testing.T) {
	config.Reset()
	cfg := config.GetConfig()

	// Defaults drop local development referrers
	assert.Equal(t, []string{"localhost", "127.0.0.1"}, cfg.BlacklistedReferrerHosts())

	cfg.ReferrerBlacklist = " Spam.Example.com , , other.net"
	assert.Equal(t, []string{"spam.example.com", "other.net"}, cfg.BlacklistedReferrerHosts())
}

func TestGetDatabasePathDerivation(t *testing.T) {
	config.Reset()
	cfg := config.GetConfig()

	path := cfg.GetDatabasePath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, "pixelview-test.db")
}

func TestConnectionLimitsInTestEnvironment(t *testing.T) {
	config.Reset()
	cfg := config.GetConfig()

	assert.Equal(t, 1, cfg.GetMaxOpenConns())
	assert.Equal(t, 1, cfg.GetMaxIdleConns())
}
