package optimizer_test

import (
	"errors"
	"math"
	"testing"

	"github.com/xraph/dpledger/optimizer"
)

// objective mirrors the RDP-to-DP conversion being minimized, used here to
// verify the returned epsilon really is a minimum.
func objective(c, delta, alpha float64) float64 {
	if alpha <= 1 {
		return math.Inf(1)
	}
	eps := alpha*c +
		math.Log((alpha-1)/alpha) -
		(math.Log(delta)+math.Log(alpha))/(alpha-1)
	return math.Max(eps, 0)
}

func TestOptimalEpsilonProperties(t *testing.T) {
	const delta = 1e-6

	for _, c := range []float64{0.01, 0.5, 1.0, 5.0, 50.0, 1000.0} {
		alpha, eps, err := optimizer.OptimalEpsilon(c, delta)
		if err != nil {
			t.Fatalf("OptimalEpsilon(%v): %v", c, err)
		}
		if alpha <= 1 {
			t.Errorf("OptimalEpsilon(%v): alpha = %v, want > 1", c, alpha)
		}
		if eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
			t.Errorf("OptimalEpsilon(%v): epsilon = %v, want finite non-negative", c, eps)
		}

		// The reported epsilon must not beat the objective anywhere we probe.
		for _, probe := range []float64{1.001, 1.5, 2.0, 3.0, 10.0, 100.0} {
			if g := objective(c, delta, probe); g < eps-1e-8 {
				t.Errorf("OptimalEpsilon(%v): epsilon %v exceeds objective %v at alpha=%v", c, eps, g, probe)
			}
		}

		// And it must agree with the objective at the reported alpha.
		if g := objective(c, delta, alpha); math.Abs(g-eps) > 1e-6 {
			t.Errorf("OptimalEpsilon(%v): epsilon %v, objective at alpha %v is %v", c, eps, alpha, g)
		}
	}
}

func TestOptimalEpsilonMonotoneInConstant(t *testing.T) {
	const delta = 1e-6

	prev := -1.0
	for _, c := range []float64{0.1, 0.5, 1.0, 2.0, 10.0, 100.0} {
		_, eps, err := optimizer.OptimalEpsilon(c, delta)
		if err != nil {
			t.Fatalf("OptimalEpsilon(%v): %v", c, err)
		}
		if eps < prev-1e-9 {
			t.Errorf("epsilon decreased: OptimalEpsilon(%v) = %v < %v", c, eps, prev)
		}
		prev = eps
	}
}

func TestOptimalEpsilonInvalidDomain(t *testing.T) {
	tests := []struct {
		name  string
		c     float64
		delta float64
	}{
		{"zero delta", 0.5, 0},
		{"delta one", 0.5, 1},
		{"negative delta", 0.5, -1e-6},
		{"negative constant", -1, 1e-6},
		{"nan constant", math.NaN(), 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := optimizer.OptimalEpsilon(tt.c, tt.delta)
			if !errors.Is(err, optimizer.ErrNonFiniteEpsilon) {
				t.Fatalf("got %v, want ErrNonFiniteEpsilon", err)
			}
		})
	}
}
