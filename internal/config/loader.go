package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/pool-backoffice/internal/calendar"
	"github.com/example/pool-backoffice/internal/logging"
)

// EnvPrefix is prepended to every key read by Load.
const EnvPrefix = "BACKOFFICE_"

// Store selects the persistence backend.
type Store string

const (
	StoreSQLite   Store = "sqlite"
	StoreMemory   Store = "memory"
	StoreDynamoDB Store = "dynamodb"
)

// Config captures environment driven configuration values for the back-office service.
type Config struct {
	HTTPPort          int
	Store             Store
	SQLitePath        string
	SessionTTL        time.Duration
	SecureCookie      bool
	Timezone          string
	Location          *time.Location
	DefaultTaxRate    float64
	EstimateValidDays int
	ViewCacheTTL      time.Duration
	LogLevel          slog.Level
	DynamoDB          DynamoDB
}

// DynamoDB holds the settings used when Store is StoreDynamoDB.
type DynamoDB struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EventsTable     string
	EstimatesTable  string
}

// Lookup reads a raw value. It has the shape of os.LookupEnv.
type Lookup func(key string) (string, bool)

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadWithEnvFile layers the process environment over the values of a dotenv
// file. A missing file is ignored.
func LoadWithEnvFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Load()
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Load()
		}
		return Config{}, fmt.Errorf("read env file %s: %w", path, err)
	}
	return LoadFrom(func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	})
}

// LoadFrom parses configuration values read through lookup.
//
// Defaults are applied for optional fields. Every invalid value is reported
// in a single error.
func LoadFrom(lookup Lookup) (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		Store:             StoreSQLite,
		SQLitePath:        "backoffice.db",
		SessionTTL:        24 * time.Hour,
		SecureCookie:      true,
		Timezone:          calendar.DefaultTimezone,
		DefaultTaxRate:    0.07,
		EstimateValidDays: 30,
		ViewCacheTTL:      30 * time.Second,
		LogLevel:          slog.LevelInfo,
	}

	get := func(key string) string {
		value, _ := lookup(EnvPrefix + key)
		return strings.TrimSpace(value)
	}
	invalid := make([]string, 0, 2)

	if portValue := get("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storeValue := get("STORE"); storeValue != "" {
		switch store := Store(strings.ToLower(storeValue)); store {
		case StoreSQLite, StoreMemory, StoreDynamoDB:
			cfg.Store = store
		default:
			invalid = append(invalid, EnvPrefix+"STORE")
		}
	}

	if path := get("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if ttlValue := get("SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, EnvPrefix+"SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if secureValue := get("SECURE_COOKIE"); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, EnvPrefix+"SECURE_COOKIE")
		} else {
			cfg.SecureCookie = secure
		}
	}

	if tz := get("TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	loc, err := calendar.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, EnvPrefix+"TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if rateValue := get("DEFAULT_TAX_RATE"); rateValue != "" {
		rate, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || rate < 0 || rate > 1 {
			invalid = append(invalid, EnvPrefix+"DEFAULT_TAX_RATE")
		} else {
			cfg.DefaultTaxRate = rate
		}
	}

	if daysValue := get("ESTIMATE_VALID_DAYS"); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, EnvPrefix+"ESTIMATE_VALID_DAYS")
		} else {
			cfg.EstimateValidDays = days
		}
	}

	if cacheValue := get("VIEW_CACHE_TTL"); cacheValue != "" {
		ttl, err := time.ParseDuration(cacheValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, EnvPrefix+"VIEW_CACHE_TTL")
		} else {
			cfg.ViewCacheTTL = ttl
		}
	}

	if levelValue := get("LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, EnvPrefix+"LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	cfg.DynamoDB = DynamoDB{
		Endpoint:        get("DYNAMODB_ENDPOINT"),
		Region:          get("AWS_REGION"),
		AccessKeyID:     get("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: get("AWS_SECRET_ACCESS_KEY"),
		EventsTable:     get("EVENTS_TABLE"),
		EstimatesTable:  get("ESTIMATES_TABLE"),
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
