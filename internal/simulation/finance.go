package simulation

import "math"

const (
	irrLowerBound = -0.9999
	irrMaxUpper   = 1e6
	irrTolerance  = 1e-10
	irrMaxIter    = 300
)

// NPV discounts values at rate. The first value is at t=0 and is not
// discounted.
func NPV(rate float64, values []float64) float64 {
	var npv float64
	for t, v := range values {
		npv += v / math.Pow(1+rate, float64(t))
	}
	return npv
}

// IRR returns the rate at which NPV of values is zero. It reports false when
// the series has no sign change or no root can be bracketed.
func IRR(values []float64) (float64, bool) {
	if len(values) < 2 || !hasSignChange(values) {
		return 0, false
	}

	lo, hi := irrLowerBound, 1.0
	flo, fhi := NPV(lo, values), NPV(hi, values)
	for flo*fhi > 0 && hi < irrMaxUpper {
		hi *= 2
		fhi = NPV(hi, values)
	}
	if flo*fhi > 0 || math.IsNaN(flo) || math.IsNaN(fhi) {
		return 0, false
	}

	for i := 0; i < irrMaxIter; i++ {
		mid := (lo + hi) / 2
		fm := NPV(mid, values)
		if fm == 0 || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}

func hasSignChange(values []float64) bool {
	var pos, neg bool
	for _, v := range values {
		pos = pos || v > 0
		neg = neg || v < 0
	}
	return pos && neg
}
