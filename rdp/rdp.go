// Package rdp computes the composable Rényi-DP constant of a Gaussian
// mechanism invocation.
//
// The constant is the slope of the mechanism's linear-in-alpha RDP bound,
// f(alpha) = alpha * constant. Constants compose additively across
// invocations touching the same data subject, so summing them gives the
// total privacy loss at any fixed Rényi order.
package rdp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSigma is returned for a non-positive noise scale. A mechanism
// with sigma <= 0 adds no noise, so no finite privacy loss can be computed.
var ErrInvalidSigma = errors.New("rdp: sigma must be positive")

// Params carries the per-invocation parameters of a batch of Gaussian
// mechanism invocations, index-aligned across the slices.
type Params struct {
	// Sigmas are the noise scales.
	Sigmas []float64 `json:"sigmas"`
	// L2Norms are the true (private) L2 norms of the queried values.
	L2Norms []float64 `json:"l2_norms"`
	// L2NormBounds are publicly declared bounds on those norms, usable for
	// cost estimation without touching private data.
	L2NormBounds []float64 `json:"l2_norm_bounds"`
	// Ls are the Lipschitz bounds (per-subject sensitivity multipliers).
	Ls []float64 `json:"ls"`
}

// String renders the parameter batch for logs.
func (p Params) String() string {
	var b strings.Builder
	b.WriteString("rdp.Params:")
	fmt.Fprintf(&b, "\n sigmas:%v", p.Sigmas)
	fmt.Fprintf(&b, "\n l2_norms:%v", p.L2Norms)
	fmt.Fprintf(&b, "\n l2_norm_bounds:%v", p.L2NormBounds)
	fmt.Fprintf(&b, "\n Ls:%v", p.Ls)
	return b.String()
}

// validate checks batch alignment and noise scales.
func (p Params) validate(private bool) error {
	n := len(p.Sigmas)
	if len(p.Ls) != n {
		return fmt.Errorf("rdp: batch length mismatch: %d sigmas, %d Ls", n, len(p.Ls))
	}
	if private && len(p.L2Norms) != n {
		return fmt.Errorf("rdp: batch length mismatch: %d sigmas, %d l2 norms", n, len(p.L2Norms))
	}
	if !private && len(p.L2NormBounds) != n {
		return fmt.Errorf("rdp: batch length mismatch: %d sigmas, %d l2 norm bounds", n, len(p.L2NormBounds))
	}
	for i, sigma := range p.Sigmas {
		if sigma <= 0 {
			return fmt.Errorf("%w: sigma[%d] = %v", ErrInvalidSigma, i, sigma)
		}
	}
	return nil
}

// Constants computes the RDP constant of every invocation in the batch:
//
//	L^2 * l2^2 / (2 * sigma^2)
//
// When private is true the true L2 norms are used; otherwise the declared
// bounds are, which yields a conservative estimate safe to expose.
func Constants(p Params, private bool) ([]float64, error) {
	if err := p.validate(private); err != nil {
		return nil, err
	}

	l2s := p.L2NormBounds
	if private {
		l2s = p.L2Norms
	}

	out := make([]float64, len(p.Sigmas))
	for i := range p.Sigmas {
		out[i] = constant(p.Sigmas[i], l2s[i], p.Ls[i])
	}
	return out, nil
}

// Constant computes a single RDP constant. Non-positive sigma is fatal.
func Constant(sigma, l2, L float64) (float64, error) {
	if sigma <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}
	return constant(sigma, l2, L), nil
}

func constant(sigma, l2, L float64) float64 {
	return (L * L * l2 * l2) / (2 * sigma * sigma)
}
