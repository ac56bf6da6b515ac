package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpvault/pvm/internal/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStrategyDefaultsToFixedBucket(t *testing.T) {
	path := writeTemp(t, "strategy.json", `{
		"longs":  [{"symbol": "BTC", "bps": 10000}],
		"shorts": [{"symbol": "ETH", "bps": 10000}]
	}`)

	s, err := LoadStrategy(path)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyFixedBucket, s.Type)
	assert.Equal(t, "BTC", s.Longs[0].Symbol)
}

func TestLoadStrategyLegacyZKAlias(t *testing.T) {
	path := writeTemp(t, "strategy.json", `{
		"type": "pair_neutral_breakout",
		"symbols": ["BTC", "ETH"],
		"params": {"z_k": 2.5}
	}`)

	s, err := LoadStrategy(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, s.Params.KIn)
	assert.Equal(t, 1.25, s.Params.KOut)
}

func TestLoadStrategyExplicitKInWinsOverAlias(t *testing.T) {
	path := writeTemp(t, "strategy.json", `{
		"type": "pair_neutral_breakout",
		"symbols": ["BTC", "ETH"],
		"params": {"k_in": 3.0, "z_k": 2.5, "k_out": 0.8}
	}`)

	s, err := LoadStrategy(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Params.KIn)
	assert.Equal(t, 0.8, s.Params.KOut)
}

func TestLoadStrategyKOutFloorsAtOne(t *testing.T) {
	path := writeTemp(t, "strategy.json", `{
		"type": "pair_neutral_breakout",
		"symbols": ["BTC", "ETH"],
		"params": {"k_in": 1.5}
	}`)

	s, err := LoadStrategy(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Params.KOut)
}

func TestLoadStrategyRejectsInvalidBuckets(t *testing.T) {
	path := writeTemp(t, "strategy.json", `{
		"longs":  [{"symbol": "BTC", "bps": 9000}],
		"shorts": [{"symbol": "ETH", "bps": 10000}]
	}`)

	_, err := LoadStrategy(path)
	assert.ErrorIs(t, err, types.ErrBucketBpsSum)
}

func TestLoadEngineConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig("")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadEngineConfigOverlaysDefaults(t *testing.T) {
	path := writeTemp(t, "engine.json", `{"turnoverCapBps": 2500, "leverage": 1.5}`)

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cfg.TurnoverCapBps)
	assert.Equal(t, 1.5, cfg.Leverage)
	assert.Equal(t, types.DefaultConfig().CooldownSeconds, cfg.CooldownSeconds)
	assert.Contains(t, cfg.PerSymbolMaxUSD, types.DefaultSymbolKey)
}

func TestLoadEngineConfigRejectsInvalid(t *testing.T) {
	path := writeTemp(t, "engine.json", `{"leverage": -1}`)

	_, err := LoadEngineConfig(path)
	assert.ErrorIs(t, err, types.ErrInvalidLeverage)
}

func TestLoadLiveConfigDerivesAssetsFromWeights(t *testing.T) {
	path := writeTemp(t, "live.json", `{
		"assets": [],
		"weights": {"SOL": 1.0, "DOGE": -1.0}
	}`)

	cfg, err := LoadLiveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE", "SOL"}, cfg.Assets)
	assert.Equal(t, 2.0, cfg.LMax)
}

func TestLoadLiveConfigRejectsEmptyUniverse(t *testing.T) {
	path := writeTemp(t, "live.json", `{"assets": [], "weights": {}}`)

	_, err := LoadLiveConfig(path)
	assert.ErrorIs(t, err, ErrNoAssets)
}

func TestLoadLiveConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadLiveConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLiveConfig(), cfg)
}
