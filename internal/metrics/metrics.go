package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/perpvault/pvm/internal/fixedpoint"
)

const (
	yearSeconds        = 365.0 * 24 * 3600
	defaultStepSeconds = 3600.0
)

// Summary is the serialized result of a completed run. MaxDrawdown is the
// most negative peak-to-trough return observed, so it is <= 0.
type Summary struct {
	StartNAVUSD          float64 `json:"start_nav_usd"`
	FinalNAVUSD          float64 `json:"final_nav_usd"`
	TotalReturn          float64 `json:"total_return"`
	CAGR                 float64 `json:"cagr"`
	Sharpe               float64 `json:"sharpe"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Steps                int     `json:"steps"`
	DurationDays         float64 `json:"duration_days"`
	Rebalances           int     `json:"rebalances"`
	RebalancesWithTrades int     `json:"rebalances_with_trades"`
	TotalTurnoverUSD     float64 `json:"total_turnover_usd"`
	TotalFeePaidUSD      float64 `json:"total_fee_paid_usd"`
	TotalFundingPnLUSD   float64 `json:"total_funding_pnl_usd"`
}

// Accumulator folds per-step observations into a run summary. It keeps the
// per-row NAV and timestamp series for drawdown, Sharpe and cadence but
// nothing per-asset.
type Accumulator struct {
	navSeries []float64
	tsSeries  []int64

	rebalances           int
	rebalancesWithTrades int
	turnover             fixedpoint.USD
	fees                 float64
	funding              float64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Observe records one completed step.
func (a *Accumulator) Observe(ts time.Time, nav, grossTurnover fixedpoint.USD, feeUSD, fundingUSD float64, rebalanced bool) {
	a.navSeries = append(a.navSeries, nav.Float())
	a.tsSeries = append(a.tsSeries, ts.Unix())

	if rebalanced {
		a.rebalances++
		if grossTurnover > 0 {
			a.rebalancesWithTrades++
		}
		a.turnover += grossTurnover
		a.fees += feeUSD
	}
	a.funding += fundingUSD
}

// Summary finalizes the accumulated run. Fewer than two rows yields only the
// trade counters.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		Steps:                len(a.navSeries),
		Rebalances:           a.rebalances,
		RebalancesWithTrades: a.rebalancesWithTrades,
		TotalTurnoverUSD:     a.turnover.Float(),
		TotalFeePaidUSD:      a.fees,
		TotalFundingPnLUSD:   a.funding,
	}
	n := len(a.navSeries)
	if n == 0 {
		return s
	}
	start := a.navSeries[0]
	end := a.navSeries[n-1]
	s.StartNAVUSD = start
	s.FinalNAVUSD = end
	if n < 2 {
		return s
	}
	if start > 0 {
		s.TotalReturn = end/start - 1
	}

	durationSec := float64(a.tsSeries[n-1] - a.tsSeries[0])
	if durationSec < 1 {
		durationSec = 1
	}
	s.DurationDays = durationSec / 86400.0
	if start > 0 && end > 0 {
		s.CAGR = math.Pow(end/start, yearSeconds/durationSec) - 1
	}
	s.Sharpe = a.sharpe()
	s.MaxDrawdown = a.maxDrawdown()
	return s
}

func (a *Accumulator) sharpe() float64 {
	n := len(a.navSeries)
	rets := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if prev := a.navSeries[i-1]; prev > 0 {
			rets = append(rets, a.navSeries[i]/prev-1)
		}
	}
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	variance := 0.0
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(yearSeconds/a.avgStepSeconds())
}

func (a *Accumulator) avgStepSeconds() float64 {
	var sum float64
	var count int
	for i := 1; i < len(a.tsSeries); i++ {
		if d := a.tsSeries[i] - a.tsSeries[i-1]; d > 0 {
			sum += float64(d)
			count++
		}
	}
	if count == 0 {
		return defaultStepSeconds
	}
	avg := sum / float64(count)
	if avg < 1 {
		return 1
	}
	return avg
}

func (a *Accumulator) maxDrawdown() float64 {
	peak := a.navSeries[0]
	mdd := 0.0
	for _, v := range a.navSeries {
		if v > peak {
			peak = v
		}
		if dd := v/peak - 1; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// Percentile returns the pct-th percentile of xs by nearest-rank on a sorted
// copy. An empty input yields zero.
func Percentile(xs []float64, pct float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
