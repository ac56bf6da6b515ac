package sizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpvault/pvm/internal/fixedpoint"
	"github.com/perpvault/pvm/internal/types"
)

func TestSafeBetaDegenerateInputs(t *testing.T) {
	// Short history and mismatched lengths fall back to 1.0.
	assert.Equal(t, 1.0, SafeBeta([]float64{0.01}, []float64{0.02}, 0.2, 5.0))
	assert.Equal(t, 1.0, SafeBeta([]float64{0.01, 0.02}, []float64{0.02}, 0.2, 5.0))
	// Zero variance of B falls back to 1.0.
	assert.Equal(t, 1.0, SafeBeta([]float64{0.01, 0.02, 0.03}, []float64{0.01, 0.01, 0.01}, 0.2, 5.0))
}

func TestSafeBetaPerfectCorrelation(t *testing.T) {
	retB := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
	retA := make([]float64, len(retB))
	for i, r := range retB {
		retA[i] = 2 * r
	}
	assert.InDelta(t, 2.0, SafeBeta(retA, retB, 0.2, 5.0), 1e-12)
}

func TestSafeBetaClamps(t *testing.T) {
	retB := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
	retA := make([]float64, len(retB))
	for i, r := range retB {
		retA[i] = 10 * r
	}
	assert.Equal(t, 5.0, SafeBeta(retA, retB, 0.2, 5.0))

	for i, r := range retB {
		retA[i] = 0.05 * r
	}
	assert.Equal(t, 0.2, SafeBeta(retA, retB, 0.2, 5.0))
}

func TestSpreadZNeedsMinimumSamples(t *testing.T) {
	hist := []float64{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, 0.0, spreadZ(hist, 7, 24))
}

func TestSpreadZOnKnownWindow(t *testing.T) {
	// Eight samples alternating around zero with the latest at 2: mean and
	// stddev are hand-computable.
	hist := []float64{-1, 1, -1, 1, -1, 1, -1, 2}
	mean := 0.125
	var variance float64
	for _, x := range hist {
		variance += (x - mean) * (x - mean)
	}
	variance /= 7
	want := (2 - mean) / math.Sqrt(variance)
	assert.InDelta(t, want, spreadZ(hist, 2, 24), 1e-12)
}

func TestSpreadZZeroStd(t *testing.T) {
	hist := []float64{3, 3, 3, 3, 3, 3, 3, 3}
	assert.Equal(t, 0.0, spreadZ(hist, 3, 24))
}

func regimeParams() types.PairParams {
	p := types.DefaultPairParams()
	p.KIn = 2.0
	p.KOut = 1.0
	p.RegimeStopBps = 50
	p.RegimeTPBps = 100
	return p
}

func TestRegimeEntersLongAtThreshold(t *testing.T) {
	p := regimeParams()
	nav := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	for _, z := range []float64{0, 0.5, 1.0, 1.5, 1.9} {
		advanceRegime(&state, z, nav, p)
		assert.Equal(t, types.RegimeNeutral, state.Regime, "z=%v", z)
	}

	advanceRegime(&state, 2.0, nav, p)
	assert.Equal(t, types.RegimeLong, state.Regime)
	assert.Equal(t, nav, state.EntryNAV)
}

func TestRegimeEntersShortOnNegativeBreakout(t *testing.T) {
	p := regimeParams()
	state := types.NewPairRegimeState()

	advanceRegime(&state, -2.5, fixedpoint.FromFloat(1_000_000), p)
	assert.Equal(t, types.RegimeShort, state.Regime)
}

func TestRegimeExitHysteresis(t *testing.T) {
	p := regimeParams()
	nav := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	advanceRegime(&state, 2.5, nav, p)
	require.Equal(t, types.RegimeLong, state.Regime)

	// Between k_out and k_in the regime holds.
	advanceRegime(&state, 1.5, nav, p)
	assert.Equal(t, types.RegimeLong, state.Regime)

	// At or below k_out it exits to neutral.
	advanceRegime(&state, 0.9, nav, p)
	assert.Equal(t, types.RegimeNeutral, state.Regime)
	assert.Equal(t, 0, state.Hold)
}

func TestRegimeCannotFlipWithoutNeutral(t *testing.T) {
	p := regimeParams()
	nav := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	advanceRegime(&state, 2.5, nav, p)
	require.Equal(t, types.RegimeLong, state.Regime)

	// A hard reversal past -k_in never flips directly: |z| is still above
	// k_out, so the long regime holds.
	advanceRegime(&state, -2.5, nav, p)
	assert.Equal(t, types.RegimeLong, state.Regime)

	// Only after the spread decays through k_out does the regime go neutral,
	// and a later breakout can then enter short.
	advanceRegime(&state, -0.5, nav, p)
	require.Equal(t, types.RegimeNeutral, state.Regime)
	advanceRegime(&state, -2.5, nav, p)
	assert.Equal(t, types.RegimeShort, state.Regime)
}

func TestRegimeMinHoldLock(t *testing.T) {
	p := regimeParams()
	p.MinHoldSteps = 2
	nav := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	advanceRegime(&state, 2.5, nav, p)
	require.Equal(t, types.RegimeLong, state.Regime)

	// z collapses immediately but the hold lock keeps the regime.
	advanceRegime(&state, 0.0, nav, p)
	assert.Equal(t, types.RegimeLong, state.Regime)
	advanceRegime(&state, 0.0, nav, p)
	assert.Equal(t, types.RegimeLong, state.Regime)

	advanceRegime(&state, 0.0, nav, p)
	assert.Equal(t, types.RegimeNeutral, state.Regime)
}

func TestRegimeStopLoss(t *testing.T) {
	p := regimeParams()
	entry := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	advanceRegime(&state, 2.5, entry, p)
	require.Equal(t, types.RegimeLong, state.Regime)

	// NAV down 60 bps breaches the 50 bps stop even while z stays elevated.
	down := fixedpoint.FromFloat(994_000)
	advanceRegime(&state, 2.5, down, p)
	assert.Equal(t, types.RegimeNeutral, state.Regime)
}

func TestRegimeTakeProfit(t *testing.T) {
	p := regimeParams()
	entry := fixedpoint.FromFloat(1_000_000)
	state := types.NewPairRegimeState()

	advanceRegime(&state, 2.5, entry, p)
	require.Equal(t, types.RegimeLong, state.Regime)

	up := fixedpoint.FromFloat(1_011_000) // +110 bps
	advanceRegime(&state, 2.5, up, p)
	assert.Equal(t, types.RegimeNeutral, state.Regime)
}

func TestPairBreakoutTargetsMissingPrices(t *testing.T) {
	market := types.NewMarketState([]string{"BTC", "ETH"})
	state := types.NewPairRegimeState()

	targets, _ := PairBreakoutTargets(
		fixedpoint.FromFloat(1_000_000), market, "BTC", "ETH",
		types.DefaultPairParams(), types.DefaultConfig(), &state,
	)
	assert.Empty(t, targets)
}

func TestPairBreakoutTargetsNeutralSplit(t *testing.T) {
	market := types.NewMarketState([]string{"BTC", "ETH"})
	market.LastPrice["BTC"] = 60_000
	market.LastPrice["ETH"] = 2_400
	state := types.NewPairRegimeState()
	nav := fixedpoint.FromFloat(1_000_000)

	targets, meta := PairBreakoutTargets(
		nav, market, "BTC", "ETH",
		types.DefaultPairParams(), types.DefaultConfig(), &state,
	)

	// Without beta hedging the gross splits evenly at one turn of leverage.
	require.Len(t, targets, 2)
	assert.Equal(t, types.RegimeNeutral, meta.Regime)
	assert.Equal(t, fixedpoint.FromFloat(1_000_000), targets["BTC"])
	assert.Equal(t, fixedpoint.FromFloat(-1_000_000), targets["ETH"])
	assert.True(t, targets["BTC"] > 0)
	assert.True(t, targets["ETH"] < 0)
}
