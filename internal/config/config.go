package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
)

// Config holds everything the api and shiftctl binaries read from the
// environment.
type Config struct {
	Env      string
	AppPort  string
	LogLevel string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	MigrateOnStart    bool

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	// LockBackend selects the terminal lock: Postgres advisory locks scoped
	// to the transaction, or a Redis (redsync) mutex released after commit.
	LockBackend      string
	TxTimeout        time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration

	VarianceAbsoluteThreshold decimal.Decimal
	VariancePercentThreshold  decimal.Decimal
	ReportCacheTTL            time.Duration
	Currency                  string
}

// Load reads .env (if present) and the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var errs []error
	cfg := &Config{
		Env:         getString("APP_ENV", "development"),
		AppPort:     getString("APP_PORT", "8080"),
		LogLevel:    getString("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LockBackend: strings.ToLower(getString("LOCK_BACKEND", LockBackendPostgres)),
		Currency:    strings.ToUpper(getString("CURRENCY", "ZMW")),
	}

	cfg.DBMaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 25, &errs)
	cfg.DBMaxIdleConns = getInt("DB_MAX_IDLE_CONNS", 5, &errs)
	cfg.DBConnMaxLifetime = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs)
	cfg.MigrateOnStart = getBool("MIGRATE_ON_START", false, &errs)
	cfg.TokenTTL = getDuration("TOKEN_TTL", 12*time.Hour, &errs)
	cfg.TxTimeout = getDuration("TX_TIMEOUT", 10*time.Second, &errs)
	cfg.LockTimeout = getDuration("LOCK_TIMEOUT", 5*time.Second, &errs)
	cfg.StatementTimeout = getDuration("STATEMENT_TIMEOUT", 8*time.Second, &errs)
	cfg.ReportCacheTTL = getDuration("REPORT_CACHE_TTL", 5*time.Minute, &errs)
	cfg.VarianceAbsoluteThreshold = getDecimal("VARIANCE_ABSOLUTE_THRESHOLD", decimal.RequireFromString("5.00"), &errs)
	cfg.VariancePercentThreshold = getDecimal("VARIANCE_PERCENT_THRESHOLD", decimal.RequireFromString("0.01"), &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.LockBackend {
	case LockBackendPostgres:
	case LockBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when LOCK_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockBackendPostgres, LockBackendRedis, c.LockBackend))
	}
	if c.LockTimeout >= c.TxTimeout {
		errs = append(errs, fmt.Errorf("LOCK_TIMEOUT (%s) must be shorter than TX_TIMEOUT (%s)", c.LockTimeout, c.TxTimeout))
	}
	if c.VarianceAbsoluteThreshold.IsNegative() || c.VariancePercentThreshold.IsNegative() {
		errs = append(errs, errors.New("variance thresholds cannot be negative"))
	}
	return errors.Join(errs...)
}

// lockExpiryMargin covers commit and the release round trip after TX_TIMEOUT.
const lockExpiryMargin = 5 * time.Second

// LockExpiry is the lifetime of a Redis terminal lock. A lock is taken inside
// a transaction bounded by TX_TIMEOUT, so it must not lapse before that.
func (c *Config) LockExpiry() time.Duration {
	return c.TxTimeout + lockExpiryMargin
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getBool(key string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getDecimal(key string, def decimal.Decimal, errs *[]error) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
