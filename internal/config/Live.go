package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/perpvault/pvm/internal/volindex"
)

// ErrNoAssets indicates a live config whose asset list and weight map are both empty.
var ErrNoAssets = errors.New("live config must name at least one asset")

// IndexParams are the EWMA smoothing knobs of the volatility index.
type IndexParams struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	KF    float64 `json:"kF"`
}

// LiveConfig is the live-loop configuration document. Assets fixes the
// per-asset column order in reports; Weights carries the signed target weight
// per asset.
type LiveConfig struct {
	Assets         []string           `json:"assets"`
	Weights        map[string]float64 `json:"weights"`
	LBase          float64            `json:"L_base"`
	LMax           float64            `json:"L_max"`
	AssetCap       float64            `json:"asset_cap"`
	SlippageCapBps int                `json:"slippage_cap_bps"`
	MinTradeFrac   float64            `json:"min_trade_frac"`
	Index          IndexParams        `json:"index"`
}

// DefaultLiveConfig mirrors the production BTC/ETH market-neutral setup.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Assets:         []string{"BTC", "ETH"},
		Weights:        map[string]float64{"BTC": 0.5, "ETH": -0.5},
		LBase:          1.0,
		LMax:           2.0,
		AssetCap:       1.5,
		SlippageCapBps: 25,
		MinTradeFrac:   0.001,
		Index: IndexParams{
			Alpha: volindex.DefaultAlpha,
			Beta:  volindex.DefaultBeta,
			KF:    volindex.DefaultKF,
		},
	}
}

// LoadLiveConfig reads the live configuration from a JSON file, filling absent
// fields from the defaults. An empty path returns the defaults.
func LoadLiveConfig(path string) (LiveConfig, error) {
	cfg := DefaultLiveConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return LiveConfig{}, fmt.Errorf("read live config: %w", err)
	}
	// Unmarshal merges objects into pre-populated maps, which would leave the
	// default universe behind a document that names its own weights.
	var probe struct {
		Weights json.RawMessage `json:"weights"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return LiveConfig{}, fmt.Errorf("parse live config: %w", err)
	}
	if len(probe.Weights) > 0 && string(probe.Weights) != "null" {
		cfg.Weights = nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return LiveConfig{}, fmt.Errorf("parse live config: %w", err)
	}
	if len(cfg.Assets) == 0 {
		for a := range cfg.Weights {
			cfg.Assets = append(cfg.Assets, a)
		}
		sort.Strings(cfg.Assets)
	}
	if len(cfg.Assets) == 0 {
		return LiveConfig{}, ErrNoAssets
	}
	if cfg.Index.Alpha <= 0 {
		cfg.Index.Alpha = volindex.DefaultAlpha
	}
	if cfg.Index.Beta <= 0 {
		cfg.Index.Beta = volindex.DefaultBeta
	}
	if cfg.Index.KF <= 0 {
		cfg.Index.KF = volindex.DefaultKF
	}
	return cfg, nil
}
