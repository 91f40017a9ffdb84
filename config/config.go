package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_ingestion_backend/services"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port        string
	Environment string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	QuoteBaseURL    string
	QuoteTimeout    time.Duration
	QuoteMaxRetries int

	SymbolDelay       time.Duration
	BatchPause        time.Duration
	RegisterPause     time.Duration
	RegisterBatchSize int
	HistoryBatchSize  int
	HistoryRange      string
	SymbolsFile       string

	SchedulerEnabled bool
	MarketCloseCron  string
	LivenessCron     string

	APIRateLimit int
}

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stock_prices"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "data/prices.db"),

		QuoteBaseURL:    getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeout:    getEnvDuration("QUOTE_TIMEOUT", 30*time.Second),
		QuoteMaxRetries: getEnvInt("QUOTE_MAX_RETRIES", 2),

		SymbolDelay:       getEnvDuration("SYMBOL_DELAY", 1*time.Second),
		BatchPause:        getEnvDuration("BATCH_PAUSE", 3*time.Second),
		RegisterPause:     getEnvDuration("REGISTER_PAUSE", 1*time.Second),
		RegisterBatchSize: getEnvInt("REGISTER_BATCH_SIZE", 10),
		HistoryBatchSize:  getEnvInt("HISTORY_BATCH_SIZE", 5),
		HistoryRange:      getEnv("HISTORY_RANGE", "5y"),
		SymbolsFile:       getEnv("SYMBOLS_FILE", ""),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		MarketCloseCron:  getEnv("MARKET_CLOSE_CRON", "30 21 * * 1-5"),
		LivenessCron:     getEnv("LIVENESS_CRON", "0 * * * *"),

		APIRateLimit: getEnvInt("API_RATE_LIMIT", 120),
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("validate config: %w", err)
	}
	return config, nil
}

// Validate checks that values are usable
func (c *Config) Validate() error {
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.DBDriver == DriverPostgres && c.DBHost == "" {
		return errors.New("DB_HOST is required for postgres")
	}
	if c.QuoteMaxRetries < 0 {
		return fmt.Errorf("QUOTE_MAX_RETRIES must be >= 0, got %d", c.QuoteMaxRetries)
	}
	if c.SymbolDelay < 0 || c.BatchPause < 0 || c.RegisterPause < 0 {
		return errors.New("pacing delays must not be negative")
	}
	if c.RegisterBatchSize < 1 {
		return errors.New("REGISTER_BATCH_SIZE must be >= 1")
	}
	if c.HistoryBatchSize < 1 {
		return errors.New("HISTORY_BATCH_SIZE must be >= 1")
	}
	if c.APIRateLimit < 1 {
		return errors.New("API_RATE_LIMIT must be >= 1")
	}
	if _, err := cron.ParseStandard(c.MarketCloseCron); err != nil {
		return fmt.Errorf("MARKET_CLOSE_CRON: %w", err)
	}
	if _, err := cron.ParseStandard(c.LivenessCron); err != nil {
		return fmt.Errorf("LIVENESS_CRON: %w", err)
	}
	return nil
}

// Pacing returns the ingestion pacing derived from the config
func (c *Config) Pacing() services.PacingConfig {
	return services.PacingConfig{
		SymbolDelay:       c.SymbolDelay,
		BatchPause:        c.BatchPause,
		RegisterPause:     c.RegisterPause,
		RegisterBatchSize: c.RegisterBatchSize,
		HistoryBatchSize:  c.HistoryBatchSize,
	}
}

// InitDB initializes database connection
func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		slog.Info("Opening SQLite database", "path", cfg.SQLitePath)
		dialector = sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		// Log connection info (masked for security)
		slog.Info("Connecting to database",
			"host", maskHost(cfg.DBHost),
			"port", cfg.DBPort,
			"user", cfg.DBUser,
			"dbname", cfg.DBName,
		)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	slog.Info("Database connection verified successfully", "driver", cfg.DBDriver)
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return b
}
