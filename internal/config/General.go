package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Process configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port the dashboard and metrics server listens on.
	WebPort string
	// ReportsDir is the directory CSV and JSONL outputs are written under.
	ReportsDir string
	// SnapshotPath is where the volatility index persists its EWMA state when
	// no database is configured.
	SnapshotPath string

	// RPCBaseURL is the remote execution service endpoint. Empty selects the
	// offline mock adapter.
	RPCBaseURL string
	// RPCAPIKey is the bearer token for the remote execution service.
	RPCAPIKey string

	// TickInterval is the live loop period in seconds.
	TickInterval uint64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Every variable has a usable default; only malformed values fail.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	WebPort = getEnvOr("WEB_PORT", "8080")
	ReportsDir = getEnvOr("REPORTS_DIR", "reports")
	SnapshotPath = getEnvOr("INDEX_SNAPSHOT_PATH", "state/index_snapshot.json")
	RPCBaseURL = getEnvOr("RPC_BASE_URL", "")
	RPCAPIKey = getEnvOr("RPC_API_KEY", "")

	TickInterval, err = getEnvAsUint64Or("TICK_INTERVAL_SECONDS", 3600)
	if err != nil {
		return err
	}

	log.Debug().
		Str("WebPort", WebPort).
		Str("ReportsDir", ReportsDir).
		Str("RPCBaseURL", RPCBaseURL).
		Uint64("TickInterval", TickInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnvOr retrieves a string environment variable, falling back to def when unset.
func getEnvOr(key, def string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return def
}

// getEnvAsUint64Or retrieves an environment variable as a uint64. Returns error if set but invalid.
func getEnvAsUint64Or(key string, def uint64) (uint64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return def, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
