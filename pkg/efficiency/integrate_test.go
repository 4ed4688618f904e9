package efficiency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/obsidianstack/upperlimit/pkg/types"
)

// mockScale maps the synthetic curve exp(-r)/(4πr²), which exceeds 1 near
// r=0, into [0,1]. Integrate is linear in the efficiency, so the volume is
// divided by the same factor afterwards.
const mockScale = 1e-3

func mockCurve(edges []float64, logBins bool) types.EfficiencyCurve {
	eff := make([]float64, len(edges)-1)
	for i := range eff {
		c := (edges[i] + edges[i+1]) / 2
		if logBins {
			c = math.Sqrt(edges[i] * edges[i+1])
		}
		eff[i] = mockScale * math.Exp(-c) / (4 * math.Pi * c * c)
	}
	return types.EfficiencyCurve{Edges: edges, Efficiency: eff, LogBins: logBins}
}

func TestIntegrate_ExponentialModel_LinearBins(t *testing.T) {
	edges := floats.Span(make([]float64, 50), 0, 1)

	v, err := Integrate(mockCurve(edges, false))
	require.NoError(t, err)

	want := 1 - math.Exp(-1)
	assert.InDelta(t, want, v.Volume/mockScale, 0.1)
}

func TestIntegrate_ExponentialModel_LogBins(t *testing.T) {
	edges := floats.LogSpan(make([]float64, 50), 1e-2, 1)

	v, err := Integrate(mockCurve(edges, true))
	require.NoError(t, err)

	want := 1 - math.Exp(-1)
	assert.InDelta(t, want, v.Volume/mockScale, 0.1)
}

func TestIntegrate_StepEfficiencyConvergesToSphere(t *testing.T) {
	sphere := 4.0 / 3.0 * math.Pi

	t.Run("linear", func(t *testing.T) {
		// Efficiency 1 inside r=1, 0 out to r=2.
		edges := floats.Span(make([]float64, 2001), 0, 2)
		eff := make([]float64, 2000)
		for i := range eff {
			if (edges[i]+edges[i+1])/2 < 1 {
				eff[i] = 1
			}
		}
		v, err := Integrate(types.EfficiencyCurve{Edges: edges, Efficiency: eff})
		require.NoError(t, err)
		assert.InEpsilon(t, sphere, v.Volume, 1e-4)
		assert.Zero(t, v.Error, "no per-bin errors given")
	})

	t.Run("log", func(t *testing.T) {
		edges := floats.LogSpan(make([]float64, 2001), 1e-6, 1)
		eff := make([]float64, 2000)
		for i := range eff {
			eff[i] = 1
		}
		v, err := Integrate(types.EfficiencyCurve{Edges: edges, Efficiency: eff, LogBins: true})
		require.NoError(t, err)
		assert.InEpsilon(t, sphere, v.Volume, 1e-4)
	})

	t.Run("refinement reduces error", func(t *testing.T) {
		prev := math.Inf(1)
		for _, n := range []int{10, 100, 1000} {
			edges := floats.Span(make([]float64, n+1), 0, 1)
			eff := make([]float64, n)
			for i := range eff {
				eff[i] = 1
			}
			v, err := Integrate(types.EfficiencyCurve{Edges: edges, Efficiency: eff})
			require.NoError(t, err)
			diff := math.Abs(v.Volume - sphere)
			assert.Less(t, diff, prev, "n=%d", n)
			prev = diff
		}
	})
}

func TestIntegrate_ErrorPropagation(t *testing.T) {
	edges := []float64{0, 1, 2}
	curve := types.EfficiencyCurve{
		Edges:      edges,
		Efficiency: []float64{1, 0.5},
		Errors:     []float64{0.1, 0.2},
	}
	v, err := Integrate(curve)
	require.NoError(t, err)

	dv := VolumeElements(edges, false)
	// midpoints 0.5 and 1.5, unit width
	assert.InDelta(t, 4*math.Pi*0.25, dv[0], 1e-12)
	assert.InDelta(t, 4*math.Pi*2.25, dv[1], 1e-12)

	assert.InDelta(t, dv[0]+0.5*dv[1], v.Volume, 1e-12)
	assert.InDelta(t, math.Hypot(0.1*dv[0], 0.2*dv[1]), v.Error, 1e-12)
}

func TestIntegrate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		curve types.EfficiencyCurve
	}{
		{"no bins", types.EfficiencyCurve{Edges: []float64{0}}},
		{"edge count mismatch", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{0.5, 0.5}}},
		{"efficiency above one", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{1.5}}},
		{"efficiency negative", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{-0.1}}},
		{"efficiency nan", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{math.NaN()}}},
		{"edges not increasing", types.EfficiencyCurve{Edges: []float64{0, 2, 1}, Efficiency: []float64{0.5, 0.5}}},
		{"negative edge", types.EfficiencyCurve{Edges: []float64{-1, 1}, Efficiency: []float64{0.5}}},
		{"zero edge with log bins", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{0.5}, LogBins: true}},
		{"error count mismatch", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{0.5}, Errors: []float64{0.1, 0.1}}},
		{"negative error", types.EfficiencyCurve{Edges: []float64{0, 1}, Efficiency: []float64{0.5}, Errors: []float64{-0.1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Integrate(tc.curve)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}
