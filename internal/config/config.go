package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLitePath  = "data/employees.db"
	defaultDBHost      = "localhost"
	defaultDBName      = "employees_db"
	defaultCatalogPath = "catalog.txt"
	defaultEventTopic  = "employees.added"
	defaultLedgerTTL   = 720 * time.Hour
)

// Database selects and addresses the directory backend.
type Database struct {
	Driver     string
	SQLitePath string
	URL        string
	Host       string
	User       string
	Password   string
	Name       string
}

// DSN returns the postgres connection string, preferring an explicit URL.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     d.Host,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

// Kafka configures roster event publication. No brokers means disabled.
type Kafka struct {
	Brokers []string
	Topic   string
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Redis configures the import ledger. An empty Addr means disabled.
type Redis struct {
	Addr      string
	Password  string
	DB        int
	LedgerTTL time.Duration
}

func (r Redis) Enabled() bool { return r.Addr != "" }

// Config is everything the binary needs, resolved once at startup.
type Config struct {
	Database    Database
	CatalogPath string
	Kafka       Kafka
	Redis       Redis
	LogLevel    string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Database: Database{
			Driver:     strings.ToLower(envString("DIRECTORY_DRIVER", DriverSQLite)),
			SQLitePath: envString("SQLITE_PATH", defaultSQLitePath),
			URL:        os.Getenv("DATABASE_URL"),
			Host:       envString("DB_HOST", defaultDBHost),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       envString("DB_NAME", defaultDBName),
		},
		CatalogPath: envString("CATALOG_PATH", defaultCatalogPath),
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envString("EMPLOYEES_KAFKA_TOPIC", defaultEventTopic),
		},
		Redis: Redis{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        envInt("REDIS_DB", 0),
			LedgerTTL: time.Duration(envInt("IMPORT_LEDGER_TTL_HOURS", int(defaultLedgerTTL/time.Hour))) * time.Hour,
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported DIRECTORY_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
