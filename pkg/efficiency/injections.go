package efficiency

import (
	"math"
	"sort"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Injection is one simulated signal: where it was placed and whether the
// search recovered it. Param is a secondary binning parameter such as
// total mass; it is ignored unless VolumesByParam is used.
type Injection struct {
	Distance float64 `json:"distance" yaml:"distance"`
	Param    float64 `json:"param" yaml:"param"`
	Found    bool    `json:"found" yaml:"found"`
}

// FromInjections bins found and missed injection distances and returns the
// binomial efficiency estimate per bin. Bins are half-open [lo, hi); values
// outside the edges are ignored. An empty bin gets efficiency 0 with error 0.
func FromInjections(found, missed, edges []float64, logBins bool) (types.EfficiencyCurve, error) {
	const op = "efficiency.FromInjections"
	if err := validateEdges(op, edges, logBins); err != nil {
		return types.EfficiencyCurve{}, err
	}
	nf := histogram(found, edges)
	nm := histogram(missed, edges)

	curve := types.EfficiencyCurve{
		Edges:      append([]float64(nil), edges...),
		Efficiency: make([]float64, len(edges)-1),
		Errors:     make([]float64, len(edges)-1),
		LogBins:    logBins,
	}
	for i := range curve.Efficiency {
		total := nf[i] + nm[i]
		if total == 0 {
			continue
		}
		eff := nf[i] / total
		curve.Efficiency[i] = eff
		curve.Errors[i] = math.Sqrt(eff * (1 - eff) / total)
	}
	return curve, nil
}

// SensitiveVolume bins the injections and integrates the resulting curve.
func SensitiveVolume(found, missed, edges []float64, logBins bool) (types.VolumeEstimate, error) {
	curve, err := FromInjections(found, missed, edges, logBins)
	if err != nil {
		return types.VolumeEstimate{}, err
	}
	return Integrate(curve)
}

// VolumesByParam splits injections into bins of Param (paramEdges, half-open)
// and returns one sensitive volume per bin. A bin with no injections has
// zero volume.
func VolumesByParam(injs []Injection, paramEdges, distEdges []float64, logBins bool) ([]types.VolumeEstimate, error) {
	const op = "efficiency.VolumesByParam"
	if err := types.ValidateGrid(op, paramEdges); err != nil {
		return nil, err
	}
	nbins := len(paramEdges) - 1
	found := make([][]float64, nbins)
	missed := make([][]float64, nbins)
	for _, inj := range injs {
		b := binIndex(inj.Param, paramEdges)
		if b < 0 {
			continue
		}
		if inj.Found {
			found[b] = append(found[b], inj.Distance)
		} else {
			missed[b] = append(missed[b], inj.Distance)
		}
	}

	out := make([]types.VolumeEstimate, nbins)
	for b := range out {
		v, err := SensitiveVolume(found[b], missed[b], distEdges, logBins)
		if err != nil {
			return nil, err
		}
		out[b] = v
	}
	return out, nil
}

func histogram(xs, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	for _, x := range xs {
		if b := binIndex(x, edges); b >= 0 {
			counts[b]++
		}
	}
	return counts
}

// binIndex returns the bin i with edges[i] <= x < edges[i+1], or -1.
func binIndex(x float64, edges []float64) int {
	if math.IsNaN(x) || x < edges[0] || x >= edges[len(edges)-1] {
		return -1
	}
	// first edge strictly greater than x, minus one
	return sort.Search(len(edges), func(i int) bool { return edges[i] > x }) - 1
}
