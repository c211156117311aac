// Package optimizer converts a Rényi-DP guarantee into the tightest
// equivalent (epsilon, delta)-DP guarantee.
//
// Given the fixed-order linear bound f(alpha) = alpha * c of a mechanism
// with RDP constant c, the standard conversion yields, for every order
// alpha > 1, an epsilon of
//
//	f(alpha) + ln((alpha-1)/alpha) - (ln(delta) + ln(alpha)) / (alpha-1)
//
// clamped at zero. The minimum over alpha is the tightest epsilon; this
// package finds it with a derivative-free Brent minimizer. It runs only on
// cache miss or cache growth — ordinary traffic is served from the
// precomputed epsilon cache.
package optimizer

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFiniteEpsilon is returned when the minimization produces a
// non-finite or negative epsilon. This indicates parameters outside the
// valid domain and is fatal, never retried.
var ErrNonFiniteEpsilon = errors.New("optimizer: non-finite or negative epsilon")

// OptimalEpsilon returns the Rényi order alpha at which the conversion from
// the RDP constant c to an (epsilon, delta)-DP guarantee is tightest, and
// the resulting epsilon.
func OptimalEpsilon(c, delta float64) (alpha, epsilon float64, err error) {
	if !(delta > 0 && delta < 1) || math.IsNaN(c) || c < 0 {
		return 0, 0, fmt.Errorf("%w: constant=%v delta=%v", ErrNonFiniteEpsilon, c, delta)
	}

	g := conversionObjective(c, delta)

	alpha, epsilon, err = minimizeScalar(g, 1, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("optimizer: constant=%v delta=%v: %w", c, delta, err)
	}
	if math.IsInf(epsilon, 0) || math.IsNaN(epsilon) || epsilon < 0 {
		return 0, 0, fmt.Errorf("%w: constant=%v delta=%v epsilon=%v", ErrNonFiniteEpsilon, c, delta, epsilon)
	}
	return alpha, epsilon, nil
}

// conversionObjective builds g(alpha) for the linear RDP bound with slope c.
// The objective is +Inf at and below alpha = 1, where the Rényi order is
// undefined, and clamped at zero elsewhere since epsilon cannot be negative.
func conversionObjective(c, delta float64) func(float64) float64 {
	logDelta := math.Log(delta)
	return func(alpha float64) float64 {
		if alpha <= 1 {
			return math.Inf(1)
		}
		alphaMinus1 := alpha - 1
		eps := alpha*c +
			math.Log(alphaMinus1/alpha) -
			(logDelta+math.Log(alpha))/alphaMinus1
		return math.Max(eps, 0)
	}
}
