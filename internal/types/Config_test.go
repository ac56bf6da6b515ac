package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsNegativeCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TurnoverCapBps = -1
	assert.ErrorIs(t, cfg.Validate(), ErrNegativeCap)

	cfg = DefaultConfig()
	cfg.MaxNetDeltaUSD = -1
	assert.ErrorIs(t, cfg.Validate(), ErrNegativeCap)

	cfg = DefaultConfig()
	cfg.PerSymbolMaxUSD["BTC"] = -5
	assert.ErrorIs(t, cfg.Validate(), ErrNegativeCap)
}

func TestValidateRequiresDefaultCapEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerSymbolMaxUSD = map[string]float64{"BTC": 100_000}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDefaultCap)
}

func TestValidateRejectsBadLeverage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Leverage = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidLeverage)
}

func TestSymbolCapResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerSymbolMaxUSD = map[string]float64{
		DefaultSymbolKey: 250_000,
		"BTC":            500_000,
	}
	assert.Equal(t, 500_000.0, cfg.SymbolCapUSD("BTC"))
	assert.Equal(t, 250_000.0, cfg.SymbolCapUSD("ETH"))
}

func TestStrategyValidateFixedBucket(t *testing.T) {
	s := Strategy{
		Type:   StrategyFixedBucket,
		Longs:  []BucketLeg{{Symbol: "BTC", Bps: 6000}, {Symbol: "SOL", Bps: 4000}},
		Shorts: []BucketLeg{{Symbol: "ETH", Bps: 10_000}},
	}
	require.NoError(t, s.Validate())

	s.Longs[0].Bps = 5999
	assert.ErrorIs(t, s.Validate(), ErrBucketBpsSum)
}

func TestStrategyValidatePairSymbols(t *testing.T) {
	s := Strategy{
		Type:    StrategyPairNeutralBreakout,
		Symbols: []string{"BTC", "ETH"},
		Params:  DefaultPairParams(),
	}
	require.NoError(t, s.Validate())

	s.Symbols = []string{"BTC"}
	assert.ErrorIs(t, s.Validate(), ErrPairSymbols)
}

func TestStrategyValidateUnknownType(t *testing.T) {
	s := Strategy{Type: "martingale"}
	assert.Error(t, s.Validate())
}
