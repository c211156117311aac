package optimizer

import (
	"errors"
	"math"
)

// Bracketing and minimization bounds. The numbers match the classic
// derivative-free Brent formulation so results line up with caches
// produced by earlier builds of the engine.
const (
	gold         = 1.618034   // golden ratio for bracket expansion
	verySmallNum = 1e-21      // guards parabolic-fit denominators
	growLimit    = 110.0      // cap on a single bracket expansion step
	cg           = 0.3819660  // golden-section step inside Brent
	minTol       = 1e-11      // absolute floor on the convergence window
	defaultTol   = 1.48e-8    // relative convergence tolerance
	bracketIters = 1000       // bracket expansion bound
	brentIters   = 500        // Brent iteration bound
)

// errBracket is returned when no downhill bracket can be found; a stuck
// search is a bug in the objective, not a normal outcome.
var errBracket = errors.New("optimizer: no valid bracket found")

// bracket expands an initial interval (xa, xb) downhill until it holds a
// local minimum: f(xb) < f(xa) and f(xb) < f(xc) with xa < xb < xc (or the
// mirror ordering).
func bracket(f func(float64) float64, xa, xb float64) (float64, float64, float64, float64, float64, float64, error) {
	fa := f(xa)
	fb := f(xb)
	if fa < fb {
		xa, xb = xb, xa
		fa, fb = fb, fa
	}
	xc := xb + gold*(xb-xa)
	fc := f(xc)

	for iter := 0; fc < fb; iter++ {
		if iter > bracketIters {
			return 0, 0, 0, 0, 0, 0, errBracket
		}

		tmp1 := (xb - xa) * (fb - fc)
		tmp2 := (xb - xc) * (fb - fa)
		val := tmp2 - tmp1
		denom := 2 * verySmallNum
		if math.Abs(val) >= verySmallNum {
			denom = 2 * val
		}
		w := xb - ((xb-xc)*tmp2-(xb-xa)*tmp1)/denom
		wlim := xb + growLimit*(xc-xb)

		var fw float64
		switch {
		case (w-xc)*(xb-w) > 0:
			// Parabolic fit landed between xb and xc.
			fw = f(w)
			if fw < fc {
				xa, xb = xb, w
				fa, fb = fb, fw
				return xa, xb, xc, fa, fb, fc, nil
			}
			if fw > fb {
				xc, fc = w, fw
				return xa, xb, xc, fa, fb, fc, nil
			}
			w = xc + gold*(xc-xb)
			fw = f(w)
		case (w-wlim)*(wlim-xc) >= 0:
			w = wlim
			fw = f(w)
		case (w-wlim)*(xc-w) > 0:
			fw = f(w)
			if fw < fc {
				xb, xc = xc, w
				w = xc + gold*(xc-xb)
				fb, fc = fc, fw
				fw = f(w)
			}
		default:
			w = xc + gold*(xc-xb)
			fw = f(w)
		}

		xa, xb, xc = xb, xc, w
		fa, fb, fc = fb, fc, fw
	}

	return xa, xb, xc, fa, fb, fc, nil
}

// minimizeScalar finds a local minimum of f using Brent's method, seeded
// with the bracket (xa, xb). It returns the minimizing x and f(x).
func minimizeScalar(f func(float64) float64, xa, xb float64) (float64, float64, error) {
	xa, xb, xc, _, fb, _, err := bracket(f, xa, xb)
	if err != nil {
		return 0, 0, err
	}

	x, w, v := xb, xb, xb
	fx, fw, fv := fb, fb, fb

	a, b := xa, xc
	if a > b {
		a, b = b, a
	}

	var deltax, rat float64
	for iter := 0; iter < brentIters; iter++ {
		tol1 := defaultTol*math.Abs(x) + minTol
		tol2 := 2 * tol1
		xmid := 0.5 * (a + b)

		if math.Abs(x-xmid) < tol2-0.5*(b-a) {
			break
		}

		if math.Abs(deltax) <= tol1 {
			// Golden-section step.
			deltax = b - x
			if x >= xmid {
				deltax = a - x
			}
			rat = cg * deltax
		} else {
			// Try a parabolic fit through (v, w, x).
			tmp1 := (x - w) * (fx - fv)
			tmp2 := (x - v) * (fx - fw)
			p := (x-v)*tmp2 - (x-w)*tmp1
			tmp2 = 2 * (tmp2 - tmp1)
			if tmp2 > 0 {
				p = -p
			}
			tmp2 = math.Abs(tmp2)
			dxTemp := deltax
			deltax = rat

			if p > tmp2*(a-x) && p < tmp2*(b-x) && math.Abs(p) < math.Abs(0.5*tmp2*dxTemp) {
				rat = p / tmp2
				u := x + rat
				if (u-a) < tol2 || (b-u) < tol2 {
					rat = tol1
					if xmid-x < 0 {
						rat = -tol1
					}
				}
			} else {
				// Fit rejected, fall back to golden section.
				deltax = b - x
				if x >= xmid {
					deltax = a - x
				}
				rat = cg * deltax
			}
		}

		var u float64
		if math.Abs(rat) < tol1 {
			u = x + tol1
			if rat < 0 {
				u = x - tol1
			}
		} else {
			u = x + rat
		}

		fu := f(u)
		if fu > fx {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, w = w, u
				fv, fw = fw, fu
			} else if fu <= fv || v == x || v == w {
				v, fv = u, fu
			}
		} else {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
		}
	}

	return x, fx, nil
}
