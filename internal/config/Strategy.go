package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/perpvault/pvm/internal/types"
)

// rawStrategy mirrors the on-disk strategy document. Pair params carry a
// legacy z_k alias for the entry threshold, and k_out falls back to a value
// derived from k_in rather than a constant.
type rawStrategy struct {
	Type    string            `json:"type"`
	Longs   []types.BucketLeg `json:"longs"`
	Shorts  []types.BucketLeg `json:"shorts"`
	Symbols []string          `json:"symbols"`
	Params  *rawPairParams    `json:"params"`
}

type rawPairParams struct {
	Lookback                 *int     `json:"lookback"`
	KIn                      *float64 `json:"k_in"`
	ZK                       *float64 `json:"z_k"`
	KOut                     *float64 `json:"k_out"`
	MinHoldSteps             *int     `json:"minHoldSteps"`
	NeutralDriftThresholdBps *float64 `json:"neutralDriftThresholdBps"`
	RegimeStopBps            *float64 `json:"regimeStopBps"`
	RegimeTPBps              *float64 `json:"regimeTPBps"`
	MaxSkewBps               *float64 `json:"maxSkewBps"`
	BetaMin                  *float64 `json:"betaMin"`
	BetaMax                  *float64 `json:"betaMax"`
	UseBetaHedge             *bool    `json:"useBetaHedge"`
}

// LoadStrategy reads and validates a strategy definition from a JSON file.
// A document without a type field is treated as a fixed-bucket strategy.
func LoadStrategy(path string) (types.Strategy, error) {
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return types.Strategy{}, fmt.Errorf("read strategy: %w", err)
	}
	var raw rawStrategy
	if err := json.Unmarshal(rawBytes, &raw); err != nil {
		return types.Strategy{}, fmt.Errorf("parse strategy: %w", err)
	}

	s := types.Strategy{
		Type:    types.StrategyType(raw.Type),
		Longs:   raw.Longs,
		Shorts:  raw.Shorts,
		Symbols: raw.Symbols,
	}
	if raw.Type == "" {
		s.Type = types.StrategyFixedBucket
	}
	if s.Type == types.StrategyPairNeutralBreakout {
		s.Params = resolvePairParams(raw.Params)
	}
	if err := s.Validate(); err != nil {
		return types.Strategy{}, err
	}
	return s, nil
}

func resolvePairParams(raw *rawPairParams) types.PairParams {
	p := types.DefaultPairParams()
	if raw == nil {
		return p
	}
	if raw.Lookback != nil {
		p.Lookback = *raw.Lookback
	}
	switch {
	case raw.KIn != nil:
		p.KIn = *raw.KIn
	case raw.ZK != nil:
		p.KIn = *raw.ZK
	}
	if raw.KOut != nil {
		p.KOut = *raw.KOut
	} else {
		p.KOut = p.KIn / 2.0
		if p.KOut < 1.0 {
			p.KOut = 1.0
		}
	}
	if raw.MinHoldSteps != nil {
		p.MinHoldSteps = *raw.MinHoldSteps
	}
	if raw.NeutralDriftThresholdBps != nil {
		p.NeutralDriftThresholdBps = *raw.NeutralDriftThresholdBps
	}
	if raw.RegimeStopBps != nil {
		p.RegimeStopBps = *raw.RegimeStopBps
	}
	if raw.RegimeTPBps != nil {
		p.RegimeTPBps = *raw.RegimeTPBps
	}
	if raw.MaxSkewBps != nil {
		p.MaxSkewBps = *raw.MaxSkewBps
	}
	if raw.BetaMin != nil {
		p.BetaMin = *raw.BetaMin
	}
	if raw.BetaMax != nil {
		p.BetaMax = *raw.BetaMax
	}
	if raw.UseBetaHedge != nil {
		p.UseBetaHedge = *raw.UseBetaHedge
	}
	return p
}
