package limit

import (
	"math"
	"sort"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Interval is a closed credible interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper − Lower.
func (iv Interval) Width() float64 { return iv.Upper - iv.Lower }

// Upper returns the credible upper limit at level alpha: the rate at which
// the normalized cumulative distribution of density first reaches alpha.
func Upper(grid types.RateGrid, density types.Density, alpha float64) (float64, error) {
	const op = "limit.Upper"
	if err := validateLevel(op, alpha); err != nil {
		return 0, err
	}
	d, err := newDistribution(op, grid, density)
	if err != nil {
		return 0, err
	}
	return d.quantile(alpha), nil
}

// Lower returns the credible lower limit at level alpha, i.e. the point
// below which 1 − alpha of the probability lies.
func Lower(grid types.RateGrid, density types.Density, alpha float64) (float64, error) {
	const op = "limit.Lower"
	if err := validateLevel(op, alpha); err != nil {
		return 0, err
	}
	d, err := newDistribution(op, grid, density)
	if err != nil {
		return 0, err
	}
	return d.quantile(1 - alpha), nil
}

// Quantile returns the inverse cumulative distribution at p in [0,1].
func Quantile(grid types.RateGrid, density types.Density, p float64) (float64, error) {
	const op = "limit.Quantile"
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, types.Invalidf(op, "probability must be in [0,1], got %v", p)
	}
	d, err := newDistribution(op, grid, density)
	if err != nil {
		return 0, err
	}
	return d.quantile(p), nil
}

// MinWidthInterval returns the narrowest interval that holds alpha of the
// probability. Candidate lower bounds are the grid points.
func MinWidthInterval(grid types.RateGrid, density types.Density, alpha float64) (Interval, error) {
	const op = "limit.MinWidthInterval"
	if err := validateLevel(op, alpha); err != nil {
		return Interval{}, err
	}
	d, err := newDistribution(op, grid, density)
	if err != nil {
		return Interval{}, err
	}

	need := alpha * d.total
	best := Interval{Lower: d.x[0], Upper: d.atMass(need)}
	for i := 1; i < len(d.x) && d.cum[i]+need <= d.total; i++ {
		iv := Interval{Lower: d.x[i], Upper: d.atMass(d.cum[i] + need)}
		if iv.Width() < best.Width() {
			best = iv
		}
	}
	return best, nil
}

// HPDResult is a highest-posterior-density region.
type HPDResult struct {
	Interval
	// Threshold is the density above which points belong to the region.
	Threshold float64 `json:"threshold"`
}

// HPD returns the bounds of the highest-posterior-density region holding
// alpha of the probability, with the density threshold that defines it.
// For a multimodal density the bounds span all included modes.
func HPD(grid types.RateGrid, density types.Density, alpha float64) (HPDResult, error) {
	const op = "limit.HPD"
	if err := validateLevel(op, alpha); err != nil {
		return HPDResult{}, err
	}
	d, err := newDistribution(op, grid, density)
	if err != nil {
		return HPDResult{}, err
	}

	w := d.pointWeights()
	order := make([]int, len(d.f))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return d.f[order[a]] > d.f[order[b]] })

	need := alpha * d.total
	res := HPDResult{Interval: Interval{Lower: math.Inf(1), Upper: math.Inf(-1)}}
	var acc float64
	for _, i := range order {
		acc += w[i]
		res.Lower = math.Min(res.Lower, d.x[i])
		res.Upper = math.Max(res.Upper, d.x[i])
		res.Threshold = d.f[i]
		if acc >= need {
			break
		}
	}
	return res, nil
}

func validateLevel(op string, alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return types.Invalidf(op, "credible level must be strictly between 0 and 1, got %v", alpha)
	}
	return nil
}
