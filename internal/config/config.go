package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres" // lib/pq
	DriverPgx      = "pgx"      // jackc/pgx stdlib
)

// ScheduleOff disables the maintenance cron
const ScheduleOff = "off"

// Config holds application configuration loaded from environment variables
type Config struct {
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"` // memory|sqlite|postgres|pgx
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/recurring.db"`

	// Postgres: DB_CONN_STR wins, otherwise a DSN is built from the parts (Docker friendly)
	DBConnStr      string        `envconfig:"DB_CONN_STR"`
	DBHost         string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort         string        `envconfig:"DB_PORT" default:"5432"`
	DBUser         string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string        `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string        `envconfig:"DB_NAME" default:"wealthflow"`
	DBStartupDelay time.Duration `envconfig:"DB_STARTUP_DELAY" default:"0s"`

	GRPCAddr string `envconfig:"GRPC_ADDR" default:":8080"`
	APIToken string `envconfig:"API_TOKEN" default:"dev-token"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`     // trace|debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"` // console|json

	MaintenanceSchedule string `envconfig:"MAINTENANCE_SCHEDULE" default:"@daily"` // cron expression or "off"
	ProcessOnStart      bool   `envconfig:"PROCESS_ON_START" default:"true"`
	Timezone            string `envconfig:"TIMEZONE"` // Day boundary for "today"; empty means local time
}

// Load reads an optional .env file (missing files are ignored), then the environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverPostgres, DriverPgx:
		if c.DBConnStr == "" && (c.DBHost == "" || c.DBName == "" || c.DBUser == "") {
			return errors.New("DB_CONN_STR or DB_HOST, DB_NAME and DB_USER are required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, sqlite, postgres or pgx)", c.StoreDriver)
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q (want console or json)", c.LogFormat)
	}

	if strings.TrimSpace(c.MaintenanceSchedule) == "" {
		return fmt.Errorf("MAINTENANCE_SCHEDULE is required (use %q to disable)", ScheduleOff)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// Location resolves TIMEZONE
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}

// MaintenanceEnabled reports whether the maintenance cron should run
func (c *Config) MaintenanceEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.MaintenanceSchedule), ScheduleOff)
}
