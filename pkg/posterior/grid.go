package posterior

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// DefaultGridPoints is the number of points in a default rate grid.
const DefaultGridPoints = 100_001

// Grid span policy, in units of 1/V. Without a volume uncertainty the
// likelihood decays like exp(−μV) and exp(−50) leaves nothing to clip.
// With an uncertainty the posterior tail follows a power law of index k−1,
// and the grid is extended until the tail beyond it holds less than
// tailMass. Spans past linearSpan switch to a geometric grid above it.
const (
	minTailSpan = 50.0
	linearSpan  = 1e3
	tailMass    = 1e-6
)

// DefaultGrid returns the grid Compute uses when none is supplied:
// DefaultGridPoints rates from 0 to a span chosen from s.
func DefaultGrid(s types.Sensitivity) (types.RateGrid, error) {
	const op = "posterior.DefaultGrid"
	if err := validateSensitivity(op, s); err != nil {
		return nil, err
	}
	if s.Volume == 0 {
		return nil, types.Invalidf(op, "zero volume has no natural rate scale")
	}
	return gridFor(op, DefaultGridPoints, []types.Sensitivity{s})
}

// GridFor returns a default grid suitable for the combination of searches.
// Its resolution follows the total volume; its span is the tightest tail
// bound of any single search, since every other factor only thins the tail.
func GridFor(searches ...types.Sensitivity) (types.RateGrid, error) {
	return gridFor("posterior.GridFor", DefaultGridPoints, searches)
}

// GridForN is GridFor with n points instead of DefaultGridPoints.
func GridForN(n int, searches ...types.Sensitivity) (types.RateGrid, error) {
	const op = "posterior.GridForN"
	if n < 2 {
		return nil, types.Invalidf(op, "grid needs at least 2 points, got %d", n)
	}
	return gridFor(op, n, searches)
}

func gridFor(op string, n int, searches []types.Sensitivity) (types.RateGrid, error) {
	var total float64
	upper := math.Inf(1)
	for _, s := range searches {
		if err := validateSensitivity(op, s); err != nil {
			return nil, err
		}
		if s.Volume == 0 {
			continue
		}
		total += s.Volume
		upper = math.Min(upper, tailSpan(s.VolumeError/s.Volume, s.Background)/s.Volume)
	}
	if total == 0 {
		return nil, types.Invalidf(op, "searches have zero total volume")
	}
	if math.IsInf(upper, 1) {
		return nil, types.Degeneratef(op,
			"posterior is improper or too heavy-tailed to grid: relative volume error must be well below 1")
	}
	return spanGrid(upper, linearSpan/total, n), nil
}

// spanGrid returns n rates from 0 to upper. Up to brk the rates are evenly
// spaced; beyond 2·brk half the points go on a geometric grid above brk.
func spanGrid(upper, brk float64, n int) types.RateGrid {
	if upper <= 2*brk || n < 4 {
		return linearGrid(upper, n)
	}
	nLin := n/2 + 1
	g := make(types.RateGrid, 0, n)
	g = append(g, floats.Span(make([]float64, nLin), 0, brk)...)
	geo := floats.LogSpan(make([]float64, n-nLin+1), brk, upper)
	g = append(g, geo[1:]...)
	g[n-1] = upper
	return g
}

// Linear returns n evenly spaced rates from 0 to upper.
func Linear(upper float64, n int) (types.RateGrid, error) {
	const op = "posterior.Linear"
	if !types.NonNegative(upper) || upper == 0 {
		return nil, types.Invalidf(op, "grid maximum must be positive and finite, got %v", upper)
	}
	if n < 2 {
		return nil, types.Invalidf(op, "grid needs at least 2 points, got %d", n)
	}
	return linearGrid(upper, n), nil
}

func linearGrid(upper float64, n int) types.RateGrid {
	return types.RateGrid(floats.Span(make([]float64, n), 0, upper))
}

// tailSpan returns the grid span in units of 1/V for relative volume
// uncertainty r and background lambda, or +Inf when no finite span holds
// the tail below tailMass.
func tailSpan(r, lambda float64) float64 {
	if r == 0 {
		return minTailSpan
	}
	k := 1 / (r * r)
	if k <= 1 {
		return math.Inf(1)
	}
	// With θ = V/k the posterior mass beyond μ is at most
	// (1+λk)·(1+μθ)^−(k−1).
	x := math.Expm1(math.Log((1+lambda*k)/tailMass)/(k-1)) * k
	if math.IsNaN(x) {
		return math.Inf(1)
	}
	return math.Max(x, minTailSpan)
}
