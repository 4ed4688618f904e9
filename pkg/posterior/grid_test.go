package posterior

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/upperlimit/pkg/limit"
	"github.com/obsidianstack/upperlimit/pkg/types"
)

func TestDefaultGrid_Shape(t *testing.T) {
	g, err := DefaultGrid(types.Sensitivity{Volume: 2})
	require.NoError(t, err)
	require.Len(t, g, DefaultGridPoints)
	assert.Equal(t, 0.0, g[0])
	assert.InDelta(t, minTailSpan/2, g[len(g)-1], 1e-9)
}

func TestDefaultGrid_CoversTail(t *testing.T) {
	// The grid must extend past the point where the saturated-background
	// posterior μ·exp(−μV) has lost all but a negligible tail.
	for _, s := range []types.Sensitivity{
		{Volume: 1, Background: 1e6},
		{Volume: 1, VolumeError: 0.2, Background: 1e6},
		{Volume: 1, VolumeError: 0.5, Background: 1},
	} {
		g, err := DefaultGrid(s)
		require.NoError(t, err)
		end := g[len(g)-1]
		// log-likelihood at the end of the grid is far below its peak
		assert.Less(t, LogLikelihood(end, s)-LogLikelihood(1, s), -10.0, "%+v", s)
	}
}

func TestDefaultGrid_ZeroVolume(t *testing.T) {
	_, err := DefaultGrid(types.Sensitivity{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGridFor_TightestSearchBoundsSpan(t *testing.T) {
	g, err := GridFor(types.Sensitivity{Volume: 1}, types.Sensitivity{}, types.Sensitivity{Volume: 3})
	require.NoError(t, err)
	assert.InDelta(t, minTailSpan/3, g[len(g)-1], 1e-9)

	// A search with an improper tail on its own is bounded by an exact one.
	g, err = GridFor(types.Sensitivity{Volume: 1, VolumeError: 1.5}, types.Sensitivity{Volume: 2})
	require.NoError(t, err)
	assert.InDelta(t, minTailSpan/2, g[len(g)-1], 1e-9)

	_, err = GridFor(types.Sensitivity{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGridForN(t *testing.T) {
	g, err := GridForN(1001, types.Sensitivity{Volume: 1})
	require.NoError(t, err)
	assert.Len(t, g, 1001)
	assert.InDelta(t, minTailSpan, g[len(g)-1], 1e-9)

	_, err = GridForN(1, types.Sensitivity{Volume: 1})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestDefaultGrid_HeavyTailIsGeometric(t *testing.T) {
	g, err := DefaultGrid(types.Sensitivity{Volume: 1, VolumeError: 0.8})
	require.NoError(t, err)
	require.Len(t, g, DefaultGridPoints)
	require.NoError(t, types.ValidateGrid("test", g))

	brk := DefaultGridPoints / 2
	assert.InDelta(t, linearSpan, g[brk], 1e-6)
	assert.InDelta(t, linearSpan/float64(brk), g[1], 1e-12)
	assert.Equal(t, tailSpan(0.8, 0), g[len(g)-1])
	assert.Greater(t, g[len(g)-1], 1e10)
}

func TestDefaultGrid_HeavyTailNotClipped(t *testing.T) {
	for _, rel := range []float64{0.6, 0.75, 0.8} {
		for _, bg := range []float64{0, 1} {
			s := types.Sensitivity{Volume: 1, VolumeError: rel, Background: bg}
			grid, post, err := Compute(s, nil, nil)
			require.NoError(t, err)

			end := grid[len(grid)-1]
			q, err := limit.Quantile(grid, post, 0.999)
			require.NoError(t, err)
			assert.Less(t, q, end/10, "rel=%v bg=%v", rel, bg)

			if bg != 0 {
				continue
			}
			// Without background the marginal posterior is Lomax with
			// survival (1+μθ)^−(k−1), so its limits are known exactly.
			k := 1 / (rel * rel)
			theta := rel * rel
			for _, c := range []float64{0.90, 0.99} {
				want := math.Expm1(-math.Log1p(-c)/(k-1)) / theta
				got, err := limit.Quantile(grid, post, c)
				require.NoError(t, err)
				assert.InEpsilon(t, want, got, 1e-3, "rel=%v c=%v", rel, c)
			}
		}
	}
}

func TestDefaultGrid_TailTooHeavy(t *testing.T) {
	for _, s := range []types.Sensitivity{
		{Volume: 1, VolumeError: 1},
		{Volume: 2, VolumeError: 3, Background: 1},
		{Volume: 1, VolumeError: 0.999},
	} {
		_, err := DefaultGrid(s)
		assert.ErrorIs(t, err, types.ErrDegenerateDistribution, "%+v", s)

		_, _, err = Compute(s, nil, nil)
		assert.ErrorIs(t, err, types.ErrDegenerateDistribution, "%+v", s)
	}
}

func TestTailSpan(t *testing.T) {
	assert.Equal(t, minTailSpan, tailSpan(0, 0))
	assert.Equal(t, minTailSpan, tailSpan(0, 1e6))
	assert.Equal(t, minTailSpan, tailSpan(0.01, 0))
	assert.True(t, math.IsInf(tailSpan(1, 0), 1))
	assert.True(t, math.IsInf(tailSpan(2, 0), 1))

	wide := tailSpan(0.4, 0)
	assert.Greater(t, wide, minTailSpan)
	assert.Greater(t, tailSpan(0.4, 10), wide)
	assert.Greater(t, tailSpan(0.6, 0), wide)
}

func TestLinear(t *testing.T) {
	g, err := Linear(10, 11)
	require.NoError(t, err)
	assert.Equal(t, types.RateGrid{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, g)

	_, err = Linear(0, 10)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = Linear(10, 1)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = Linear(math.Inf(1), 10)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLogLikelihood_UncertaintyLimit(t *testing.T) {
	exact := types.Sensitivity{Volume: 2, Background: 1.5}
	fuzzy := types.Sensitivity{Volume: 2, VolumeError: 1e-5, Background: 1.5}
	for _, mu := range []float64{0, 0.1, 1, 5} {
		assert.InDelta(t, LogLikelihood(mu, exact), LogLikelihood(mu, fuzzy), 1e-6, "mu=%v", mu)
	}
}
