/*

This file contains the integer fixed-point USD representation used by the
backtest engine. Notionals are tracked as micro-dollars (scale 1e6) so that
thousands of incremental position updates stay free of float drift.

*/

package fixedpoint

import (
	sdkmath "cosmossdk.io/math"
)

// Scale is the fixed-point multiplier: one USD is 1e6 units.
const Scale int64 = 1_000_000

// USD is a signed notional amount in micro-dollars.
type USD int64

// FromFloat converts a float USD amount, truncating toward zero.
func FromFloat(v float64) USD {
	return USD(v * float64(Scale))
}

// Float converts back to a float USD amount.
func (u USD) Float() float64 {
	return float64(u) / float64(Scale)
}

// Abs returns the absolute value.
func (u USD) Abs() USD {
	if u < 0 {
		return -u
	}
	return u
}

// MulDiv computes u*num/den with truncation toward zero, widening through
// big-integer arithmetic so the intermediate product cannot overflow int64.
func MulDiv(u USD, num, den int64) USD {
	if den == 0 {
		return 0
	}
	out := sdkmath.NewInt(int64(u)).Mul(sdkmath.NewInt(num)).Quo(sdkmath.NewInt(den))
	return USD(out.Int64())
}

// BpsOf computes amount*bps/10000 with truncation toward zero.
func BpsOf(amount USD, bps int64) USD {
	return MulDiv(amount, bps, 10_000)
}
