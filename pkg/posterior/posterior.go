package posterior

import (
	"fmt"
	"math"
	"slices"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Compute returns the posterior over grid after observing no candidates in
// a search with sensitivity s, starting from prior.
//
// A nil grid is replaced by DefaultGrid(s) and a nil prior by a flat one.
// The result is rescaled so its maximum is 1; it is not normalized.
// A zero-volume search returns copies of grid and prior unchanged.
func Compute(s types.Sensitivity, grid types.RateGrid, prior types.Density) (types.RateGrid, types.Density, error) {
	const op = "posterior.Compute"
	if err := validateSensitivity(op, s); err != nil {
		return nil, nil, err
	}
	if grid == nil && prior != nil {
		return nil, nil, types.Invalidf(op, "prior given without a rate grid")
	}
	if grid != nil {
		if err := validateRateGrid(op, grid); err != nil {
			return nil, nil, err
		}
	}
	if prior != nil {
		if len(prior) != len(grid) {
			return nil, nil, types.Invalidf(op, "prior has %d points, rate grid has %d", len(prior), len(grid))
		}
		if err := types.ValidateDensity(op, prior); err != nil {
			return nil, nil, err
		}
	}

	if s.Volume == 0 {
		if grid == nil {
			return nil, nil, types.Invalidf(op, "zero-volume search needs an explicit rate grid")
		}
		return slices.Clone(grid), priorOrFlat(prior, len(grid)), nil
	}

	if grid == nil {
		g, err := DefaultGrid(s)
		if err != nil {
			return nil, nil, err
		}
		grid = g
	} else {
		grid = slices.Clone(grid)
	}

	logPost := make([]float64, len(grid))
	maxLog := math.Inf(-1)
	for i, mu := range grid {
		p := 1.0
		if prior != nil {
			p = prior[i]
		}
		if p == 0 {
			logPost[i] = math.Inf(-1)
			continue
		}
		lp := math.Log(p) + LogLikelihood(mu, s)
		logPost[i] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}

	post := make(types.Density, len(grid))
	if math.IsInf(maxLog, -1) {
		// all-zero prior: nothing to rescale, the extractor reports it
		return grid, post, nil
	}
	for i, lp := range logPost {
		post[i] = math.Exp(lp - maxLog)
	}
	return grid, post, nil
}

// Combine folds Compute over searches in order. A nil grid is replaced by
// GridFor(searches...) so that the grid resolves the combined posterior.
func Combine(searches []types.Sensitivity, grid types.RateGrid, prior types.Density) (types.RateGrid, types.Density, error) {
	if grid == nil {
		g, err := GridFor(searches...)
		if err != nil {
			return nil, nil, err
		}
		grid = g
	}
	post := prior
	for i, s := range searches {
		var err error
		grid, post, err = Compute(s, grid, post)
		if err != nil {
			return nil, nil, fmt.Errorf("posterior: search %d: %w", i, err)
		}
	}
	if post == nil {
		post = priorOrFlat(nil, len(grid))
	}
	return grid, post, nil
}

// LogLikelihood returns log L(μ) for a search with sensitivity s, up to an
// additive constant. s must be valid and μ non-negative.
func LogLikelihood(mu float64, s types.Sensitivity) float64 {
	v, sigma, lambda := s.Volume, s.VolumeError, s.Background
	if sigma == 0 {
		return -mu*v + math.Log1p(mu*lambda*v)
	}
	theta := sigma * sigma / v
	k := v / theta
	return -k*math.Log1p(mu*theta) + math.Log1p(mu*lambda*v/(1+mu*theta))
}

func validateSensitivity(op string, s types.Sensitivity) error {
	switch {
	case !types.NonNegative(s.Volume):
		return types.Invalidf(op, "volume must be finite and non-negative, got %v", s.Volume)
	case !types.NonNegative(s.VolumeError):
		return types.Invalidf(op, "volume error must be finite and non-negative, got %v", s.VolumeError)
	case math.IsNaN(s.Background) || s.Background < 0:
		return types.Invalidf(op, "background must be non-negative, got %v", s.Background)
	case math.IsInf(s.Background, 1):
		return types.Invalidf(op, "background must be finite; use a large value for the saturated limit")
	}
	return nil
}

func validateRateGrid(op string, g types.RateGrid) error {
	if err := types.ValidateGrid(op, g); err != nil {
		return err
	}
	if g[0] < 0 {
		return types.Invalidf(op, "rate grid must be non-negative, starts at %v", g[0])
	}
	return nil
}

func priorOrFlat(prior types.Density, n int) types.Density {
	if prior != nil {
		return slices.Clone(prior)
	}
	flat := make(types.Density, n)
	for i := range flat {
		flat[i] = 1
	}
	return flat
}
