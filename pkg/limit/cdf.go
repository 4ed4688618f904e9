package limit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// distribution is a density on a grid with its running trapezoid integral.
type distribution struct {
	x, f  []float64
	cum   []float64 // cum[0] = 0, cum[len-1] = total
	total float64
}

func newDistribution(op string, grid types.RateGrid, density types.Density) (*distribution, error) {
	if len(grid) != len(density) {
		return nil, types.Invalidf(op, "rate grid has %d points, density has %d", len(grid), len(density))
	}
	if err := types.ValidateGrid(op, grid); err != nil {
		return nil, err
	}
	if err := types.ValidateDensity(op, density); err != nil {
		return nil, err
	}

	cum := cumulative(grid, density)
	total := cum[len(cum)-1]
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, types.Degeneratef(op, "posterior integrates to %v", total)
	}
	return &distribution{x: grid, f: density, cum: cum, total: total}, nil
}

// cumulative returns the running trapezoid integral of f over x, starting
// at 0. x and f must have the same length of at least 2.
func cumulative(x, f []float64) []float64 {
	n := len(x)
	areas := floats.SubTo(make([]float64, n-1), x[1:], x[:n-1])
	mean := floats.AddTo(make([]float64, n-1), f[1:], f[:n-1])
	floats.Scale(0.5, mean)
	floats.Mul(areas, mean)

	cum := make([]float64, n)
	floats.CumSum(cum[1:], areas)
	return cum
}

// quantile returns the smallest x whose cumulative probability reaches p.
func (d *distribution) quantile(p float64) float64 {
	return d.atMass(p * d.total)
}

// atMass returns the smallest x whose unnormalized cumulative mass reaches m.
func (d *distribution) atMass(m float64) float64 {
	n := len(d.x)
	i := sort.SearchFloat64s(d.cum, m)
	if i == 0 {
		return d.x[0]
	}
	if i >= n {
		return d.x[n-1]
	}

	// Mass within [x0, x0+t] for a linear density is f0·t + a·t².
	x0, h := d.x[i-1], d.x[i]-d.x[i-1]
	f0, f1 := d.f[i-1], d.f[i]
	need := m - d.cum[i-1]
	a := (f1 - f0) / (2 * h)

	denom := f0 + math.Sqrt(math.Max(0, f0*f0+4*a*need))
	if denom <= 0 {
		return x0
	}
	t := 2 * need / denom
	return x0 + math.Min(math.Max(t, 0), h)
}

// pointWeights returns the trapezoid quadrature weight of every grid point,
// scaled by its density, so that their sum equals the total mass.
func (d *distribution) pointWeights() []float64 {
	n := len(d.x)
	w := make([]float64, n)
	for i := range w {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		w[i] = d.f[i] * (d.x[hi] - d.x[lo]) / 2
	}
	return w
}
