// Package config builds the server configuration from flags, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is constructed once at startup and handed to every component
type Config struct {
	APIHost string
	APIPort int
	Dev     bool

	LogLevel string

	DB       DBConfig
	Scraper  ScraperConfig
	Redis    RedisConfig
	Schedule ScheduleConfig

	// Argon2 PHC hash of the key required on ingestion routes, empty disables the guard
	AdminKeyHash string

	PIDPath string
	PIDLock bool
}

type DBConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ScraperConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

type RedisConfig struct {
	URL string
	TTL time.Duration
}

type ScheduleConfig struct {
	SeasonYear int
	Timezone   string
	// Cron spec for the daily result ingestion job, empty disables it
	ResultCron string
}

// DSN returns the data source name for the configured driver.
// Postgres credentials are URL-escaped so any character is safe in them.
func (c DBConfig) DSN() string {
	if c.Driver != DriverPostgres {
		return c.Path
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr returns the API listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// Location resolves the configured timezone
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// Load reads .env (if present), then environment, then flags from args.
// Flags win over environment, environment wins over defaults.
func Load(args []string) (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}

	var cfg Config
	fs := flag.NewFlagSet("kbo-server", flag.ContinueOnError)

	fs.StringVar(&cfg.APIHost, "api-host", getEnv("API_HOST", "localhost"), "API server host")
	fs.IntVar(&cfg.APIPort, "api-port", getEnvInt("API_PORT", 8080), "API server port")
	fs.BoolVar(&cfg.Dev, "dev", getEnvBool("DEV", false), "Development mode (relaxed rate limits, debug logging)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	RegisterDBFlags(fs, &cfg.DB)

	fs.StringVar(&cfg.Scraper.BaseURL, "scraper-url", getEnv("SCRAPER_BASE_URL", "https://www.koreabaseball.com"), "KBO site base URL")
	fs.DurationVar(&cfg.Scraper.Timeout, "scraper-timeout", getEnvDuration("SCRAPER_TIMEOUT", 20*time.Second), "Per-request scrape timeout")
	fs.IntVar(&cfg.Scraper.Retries, "scraper-retries", getEnvInt("SCRAPER_RETRIES", 2), "Retries per scrape request")
	fs.StringVar(&cfg.Scraper.UserAgent, "scraper-user-agent", getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; kbodata/1.0)"), "User agent for scrape requests")

	fs.StringVar(&cfg.Redis.URL, "redis-url", getEnv("REDIS_URL", ""), "Redis URL for query caching (disabled if empty)")
	fs.DurationVar(&cfg.Redis.TTL, "cache-ttl", getEnvDuration("CACHE_TTL", 10*time.Minute), "Query cache TTL")

	fs.IntVar(&cfg.Schedule.SeasonYear, "season", getEnvInt("SEASON_YEAR", 2025), "Season year used by the backfill endpoint")
	fs.StringVar(&cfg.Schedule.Timezone, "timezone", getEnv("TIMEZONE", "Asia/Seoul"), "Timezone used for 'yesterday' and cron")
	fs.StringVar(&cfg.Schedule.ResultCron, "result-cron", getEnv("RESULT_CRON", ""), "Cron spec for daily result ingestion (disabled if empty)")

	fs.StringVar(&cfg.PIDPath, "pid", getEnv("PID_FILE", ""), "Optional path to write PID file")
	fs.BoolVar(&cfg.PIDLock, "pid-lock", getEnvBool("PID_LOCK", false), "Lock PID file to allow only one instance (requires -pid)")

	fs.StringVar(&cfg.AdminKeyHash, "admin-key-hash", getEnv("ADMIN_KEY_HASH", ""), "Argon2 hash of the ingestion admin key (guard disabled if empty)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads .env from the working directory into the environment when present
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// RegisterDBFlags binds the database flags, defaulting from the environment
func RegisterDBFlags(fs *flag.FlagSet, db *DBConfig) {
	fs.StringVar(&db.Driver, "db-driver", getEnv("DB_DRIVER", DriverSQLite), "Database driver (sqlite3, postgres)")
	fs.StringVar(&db.Path, "storage-path", getEnv("DB_PATH", "kbodata.db"), "Path to SQLite database file")
	fs.StringVar(&db.Host, "db-host", getEnv("DB_HOST", "localhost"), "Database host")
	fs.IntVar(&db.Port, "db-port", getEnvInt("DB_PORT", 5432), "Database port")
	fs.StringVar(&db.User, "db-user", getEnv("DB_USER", "kbo"), "Database user")
	fs.StringVar(&db.Password, "db-password", getEnv("DB_PASSWORD", ""), "Database password")
	fs.StringVar(&db.Name, "db-name", getEnv("DB_NAME", "kbodata"), "Database name")
	fs.StringVar(&db.SSLMode, "db-sslmode", getEnv("DB_SSLMODE", "disable"), "Postgres sslmode")
	fs.IntVar(&db.MaxOpenConns, "db-max-open", getEnvInt("DB_MAX_OPEN_CONNS", 25), "Maximum open connections")
	fs.IntVar(&db.MaxIdleConns, "db-max-idle", getEnvInt("DB_MAX_IDLE_CONNS", 5), "Maximum idle connections")
	fs.DurationVar(&db.ConnMaxLifetime, "db-conn-lifetime", getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute), "Connection max lifetime")
}

// Validate checks the driver specific settings
func (c DBConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("sqlite driver requires a storage path")
		}
	case DriverPostgres:
		if c.Host == "" || c.Name == "" {
			return errors.New("postgres driver requires db host and db name")
		}
	default:
		return fmt.Errorf("unsupported db driver: %q", c.Driver)
	}
	return nil
}

// Validate checks the values that would otherwise fail late at runtime
func (c Config) Validate() error {
	var errs []error

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("api port out of range: %d", c.APIPort))
	}

	if err := c.DB.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PIDLock && c.PIDPath == "" {
		errs = append(errs, errors.New("-pid-lock requires -pid"))
	}

	if c.Scraper.BaseURL == "" {
		errs = append(errs, errors.New("scraper base url required"))
	}
	if c.Scraper.Retries < 0 {
		errs = append(errs, errors.New("scraper retries must not be negative"))
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
