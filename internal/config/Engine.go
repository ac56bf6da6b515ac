package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/perpvault/pvm/internal/types"
)

// LoadEngineConfig reads the backtest guard configuration from a JSON file.
// Absent fields keep their production defaults; an absent or empty path
// returns the defaults outright.
func LoadEngineConfig(path string) (types.Config, error) {
	cfg := types.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, fmt.Errorf("read engine config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return types.Config{}, fmt.Errorf("parse engine config: %w", err)
	}
	if len(cfg.PerSymbolMaxUSD) == 0 {
		cfg.PerSymbolMaxUSD = types.DefaultConfig().PerSymbolMaxUSD
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}
