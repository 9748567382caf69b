package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "./data/recurring.db", cfg.SQLitePath)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, "dev-token", cfg.APIToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "@daily", cfg.MaintenanceSchedule)
	assert.True(t, cfg.ProcessOnStart)
	assert.True(t, cfg.MaintenanceEnabled())
	assert.Equal(t, time.Duration(0), cfg.DBStartupDelay)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_DRIVER", " PGX ")
	t.Setenv("DB_CONN_STR", "postgres://u:p@db:5432/ledger?sslmode=disable")
	t.Setenv("PROCESS_ON_START", "false")
	t.Setenv("MAINTENANCE_SCHEDULE", "off")
	t.Setenv("DB_STARTUP_DELAY", "2s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DriverPgx, cfg.StoreDriver)
	assert.Equal(t, "postgres://u:p@db:5432/ledger?sslmode=disable", cfg.DSN())
	assert.False(t, cfg.ProcessOnStart)
	assert.False(t, cfg.MaintenanceEnabled())
	assert.Equal(t, 2*time.Second, cfg.DBStartupDelay)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=memory\nAPI_TOKEN=from-file\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("API_TOKEN")
	})

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "from-file", cfg.APIToken)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver:         DriverSQLite,
			SQLitePath:          "recurring.db",
			LogFormat:           "console",
			MaintenanceSchedule: "@daily",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "memory", mutate: func(c *Config) { c.StoreDriver = DriverMemory; c.SQLitePath = "" }},
		{name: "sqlite without path", mutate: func(c *Config) { c.SQLitePath = " " }, errMsg: "SQLITE_PATH"},
		{
			name:   "postgres without anything",
			mutate: func(c *Config) { c.StoreDriver = DriverPostgres },
			errMsg: "DB_CONN_STR",
		},
		{
			name:   "postgres with parts",
			mutate: func(c *Config) { c.StoreDriver = DriverPostgres; c.DBHost = "db"; c.DBName = "w"; c.DBUser = "u" },
		},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errMsg: "LOG_FORMAT"},
		{name: "empty schedule", mutate: func(c *Config) { c.MaintenanceSchedule = "" }, errMsg: "MAINTENANCE_SCHEDULE"},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, errMsg: "invalid TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestDSN_FromParts(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "ledger"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=ledger sslmode=disable", cfg.DSN())
}
