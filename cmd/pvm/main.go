package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/logger"
	"github.com/perpvault/pvm/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "pvm",
	Short: "Leveraged multi-asset perp portfolio manager",
	Long: `pvm sizes and rebalances a leveraged long/short perp portfolio.

The backtest command replays historical prices through the fixed-point
strategy engine; the run command drives the live rebalance loop against an
execution adapter; the replay command feeds historical rows through the live
engine for an execution-level dry run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
		}
		if err := config.LoadConfig(); err != nil {
			return err
		}
		logger.Initialize(os.Getenv("LOG_LEVEL"))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initDBIfConfigured connects to Postgres when DB_HOST is set. Run history is
// optional; without a database the engines still produce file reports.
func initDBIfConfigured() bool {
	host := os.Getenv("DB_HOST")
	if host == "" {
		log.Info().Msg("DB_HOST not set, skipping run history persistence")
		return false
	}

	dbCfg := state.DBConfig{
		Host: host, Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database, continuing without run history")
		return false
	}
	if err := state.EnsureSchema(); err != nil {
		log.Error().Err(err).Msg("Failed to ensure database schema, continuing without run history")
		state.CloseDB()
		return false
	}
	return true
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
