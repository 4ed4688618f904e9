package efficiency

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Integrate returns the sensitive volume of curve and its uncertainty.
//
// For an efficiency of 1 out to radius r and 0 beyond, the result converges
// to (4/3)πr³ as the bins are refined.
func Integrate(curve types.EfficiencyCurve) (types.VolumeEstimate, error) {
	const op = "efficiency.Integrate"
	if err := validateCurve(op, curve); err != nil {
		return types.VolumeEstimate{}, err
	}

	dv := VolumeElements(curve.Edges, curve.LogBins)
	est := types.VolumeEstimate{Volume: floats.Dot(curve.Efficiency, dv)}
	if len(curve.Errors) > 0 {
		weighted := make([]float64, len(dv))
		floats.MulTo(weighted, curve.Errors, dv)
		est.Error = floats.Norm(weighted, 2)
	}
	return est, nil
}

// VolumeElements returns the shell volume assigned to each bin of edges.
// edges must already be validated (strictly increasing, positive when
// logBins is set).
func VolumeElements(edges []float64, logBins bool) []float64 {
	dv := make([]float64, len(edges)-1)
	for i := range dv {
		lo, hi := edges[i], edges[i+1]
		if logBins {
			rc := math.Sqrt(lo * hi)
			dv[i] = 4 * math.Pi * rc * rc * rc * math.Log(hi/lo)
			continue
		}
		rc := (lo + hi) / 2
		dv[i] = 4 * math.Pi * rc * rc * (hi - lo)
	}
	return dv
}

func validateCurve(op string, c types.EfficiencyCurve) error {
	n := len(c.Efficiency)
	if n == 0 {
		return types.Invalidf(op, "efficiency curve has no bins")
	}
	if len(c.Edges) != n+1 {
		return types.Invalidf(op, "got %d bin edges for %d efficiencies, want %d", len(c.Edges), n, n+1)
	}
	if err := validateEdges(op, c.Edges, c.LogBins); err != nil {
		return err
	}
	for i, e := range c.Efficiency {
		if math.IsNaN(e) || e < 0 || e > 1 {
			return types.Invalidf(op, "efficiency[%d]=%v outside [0,1]", i, e)
		}
	}
	if len(c.Errors) == 0 {
		return nil
	}
	if len(c.Errors) != n {
		return types.Invalidf(op, "got %d errors for %d efficiencies", len(c.Errors), n)
	}
	for i, e := range c.Errors {
		if !types.NonNegative(e) {
			return types.Invalidf(op, "errors[%d]=%v must be finite and non-negative", i, e)
		}
	}
	return nil
}

func validateEdges(op string, edges []float64, logBins bool) error {
	if err := types.ValidateGrid(op, edges); err != nil {
		return err
	}
	if edges[0] < 0 {
		return types.Invalidf(op, "bin edges must be non-negative, first edge is %v", edges[0])
	}
	if logBins && edges[0] <= 0 {
		return types.Invalidf(op, "logarithmic bins need positive edges, first edge is %v", edges[0])
	}
	return nil
}
