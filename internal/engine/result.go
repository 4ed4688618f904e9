package engine

import (
	"time"

	"github.com/obsidianstack/upperlimit/pkg/limit"
	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Result is the outcome of one analysis.
type Result struct {
	Analysis    string        `json:"analysis"`
	Fingerprint string        `json:"fingerprint"`
	ComputedAt  time.Time     `json:"computed_at"`
	Duration    time.Duration `json:"duration_ns"`

	// Cached is true when the result was served without recomputation.
	Cached bool `json:"cached"`

	Searches   []SearchResult `json:"searches"`
	GridPoints int            `json:"grid_points"`
	MaxRate    float64        `json:"max_rate"`
	Limits     []Limit        `json:"limits"`

	// Err is non-nil when the analysis failed. Sibling analyses are
	// unaffected.
	Err          error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// SearchResult is a search resolved to the sensitivity fed to the posterior.
type SearchResult struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Livetime    float64           `json:"livetime"`
	Sensitivity types.Sensitivity `json:"sensitivity"`
}

// Limit holds the credible statements at one confidence level.
type Limit struct {
	Confidence float64         `json:"confidence"`
	Upper      float64         `json:"upper"`
	MinWidth   limit.Interval  `json:"min_width"`
	HPD        limit.HPDResult `json:"hpd"`
}

// OK reports whether the analysis succeeded.
func (r *Result) OK() bool { return r.Err == nil }

// UpperAt returns the upper limit computed at confidence c.
func (r *Result) UpperAt(c float64) (float64, bool) {
	for _, l := range r.Limits {
		if l.Confidence == c {
			return l.Upper, true
		}
	}
	return 0, false
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.ErrorMessage = err.Error()
	return r
}
