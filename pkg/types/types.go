package types

import "math"

// RateGrid is an ordered, strictly increasing sequence of candidate values
// of the rate parameter.
type RateGrid []float64

// Density is a non-negative function sampled on a RateGrid. It need not be
// normalized.
type Density []float64

// Sensitivity describes one independent search.
type Sensitivity struct {
	// Volume is the efficiency-weighted sensitive volume (or volume-time).
	Volume float64 `json:"volume" yaml:"volume"`

	// VolumeError is the one-sigma uncertainty on Volume.
	VolumeError float64 `json:"volume_error" yaml:"volume_error"`

	// Background is the expected background count λ of the search.
	Background float64 `json:"background" yaml:"background"`
}

// EfficiencyCurve is a detection efficiency sampled in distance bins.
type EfficiencyCurve struct {
	// Edges holds n+1 strictly increasing bin edges.
	Edges []float64
	// Efficiency holds n values in [0,1].
	Efficiency []float64
	// Errors holds n per-bin efficiency uncertainties. Optional.
	Errors []float64
	// LogBins selects the logarithmic volume element.
	LogBins bool
}

// VolumeEstimate is a sensitive volume with its statistical uncertainty.
type VolumeEstimate struct {
	Volume float64 `json:"volume"`
	Error  float64 `json:"error"`
}

// Scale returns the estimate multiplied by f (e.g. a livetime).
func (v VolumeEstimate) Scale(f float64) VolumeEstimate {
	return VolumeEstimate{Volume: v.Volume * f, Error: v.Error * f}
}

// ValidateGrid checks that g has at least two finite, strictly increasing
// values. Negative values are allowed here; callers that need a
// non-negative rate axis check that separately.
func ValidateGrid(op string, g []float64) error {
	if len(g) < 2 {
		return Invalidf(op, "grid needs at least 2 points, got %d", len(g))
	}
	for i, x := range g {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Invalidf(op, "grid[%d] is not finite", i)
		}
		if i > 0 && x <= g[i-1] {
			return Invalidf(op, "grid must be strictly increasing at index %d", i)
		}
	}
	return nil
}

// ValidateDensity checks that d is finite and non-negative.
func ValidateDensity(op string, d []float64) error {
	for i, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Invalidf(op, "density[%d]=%v must be finite and non-negative", i, v)
		}
	}
	return nil
}

// NonNegative reports whether v is finite and ≥ 0.
func NonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
