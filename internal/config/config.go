// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Client IP strategies for multi-value forwarded headers.
// Which entry of an X-Forwarded-For chain to trust depends on whether the
// edge proxy appends or prepends, so it is surfaced as configuration
// instead of being hardcoded.
const (
	IPStrategyLeftmost  = "leftmost"
	IPStrategyRightmost = "rightmost"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	GeoISPDBPath          string `mapstructure:"geoispdbpath"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Ingestion settings
	ReferrerBlacklist string `mapstructure:"referrerblacklist"`
	ClientIPStrategy  string `mapstructure:"clientipstrategy"`

	// Query settings
	ViewsPageSize int `mapstructure:"viewspagesize"`

	// Data retention settings (0 keeps views forever)
	ViewsRetentionDays int `mapstructure:"viewsretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "pixelview")
		v.SetDefault("appport", "4000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("geoispdbpath", "")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("referrerblacklist", "localhost,127.0.0.1")
		v.SetDefault("clientipstrategy", IPStrategyLeftmost)
		v.SetDefault("viewspagesize", 5000)
		v.SetDefault("viewsretentiondays", 0)

		// Bind environment variables
		v.BindEnv("appname", "PIXELVIEW_APP_NAME")
		v.BindEnv("appport", "PIXELVIEW_APP_PORT")
		v.BindEnv("environment", "PIXELVIEW_ENV")
		v.BindEnv("loglevel", "PIXELVIEW_LOG_LEVEL")
		v.BindEnv("privatekey", "PIXELVIEW_PRIVATE_KEY")
		v.BindEnv("storagepath", "PIXELVIEW_STORAGE_PATH")
		v.BindEnv("geodbpath", "PIXELVIEW_GEO_DB_PATH")
		v.BindEnv("geoispdbpath", "PIXELVIEW_GEO_ISP_DB_PATH")
		v.BindEnv("publicdir", "PIXELVIEW_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "PIXELVIEW_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "PIXELVIEW_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "PIXELVIEW_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "PIXELVIEW_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "PIXELVIEW_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "PIXELVIEW_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "PIXELVIEW_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "PIXELVIEW_DB_MAX_IDLE_CONNS")
		v.BindEnv("referrerblacklist", "PIXELVIEW_REFERRER_BLACKLIST")
		v.BindEnv("clientipstrategy", "PIXELVIEW_CLIENT_IP_STRATEGY")
		v.BindEnv("viewspagesize", "PIXELVIEW_VIEWS_PAGE_SIZE")
		v.BindEnv("viewsretentiondays", "PIXELVIEW_VIEWS_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	validStrategies := map[string]bool{
		IPStrategyLeftmost:  true,
		IPStrategyRightmost: true,
	}
	if !validStrategies[c.ClientIPStrategy] {
		return fmt.Errorf("invalid client IP strategy: %s", c.ClientIPStrategy)
	}

	if c.ViewsPageSize <= 0 {
		return fmt.Errorf("invalid views page size: %d", c.ViewsPageSize)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// BlacklistedReferrerHosts returns the referrer hosts whose views are dropped,
// parsed from the comma-separated blacklist setting.
func (c *Config) BlacklistedReferrerHosts() []string {
	var hosts []string
	for _, entry := range strings.Split(c.ReferrerBlacklist, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			hosts = append(hosts, entry)
		}
	}
	return hosts
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for E2E test stability)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1 // Required for E2E test stability
	}

	return 10 // Higher concurrency for development and production
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (matches MaxOpenConns for test stability)
// - Development/Production: 5 (keep half the connections warm for reuse)
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1 // Matches MaxOpenConns for test stability
	}

	return 5 // Keep half the pool warm for development and production
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
