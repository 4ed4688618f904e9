package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/upperlimit/internal/engine"
	"github.com/obsidianstack/upperlimit/pkg/types"
)

func okResult(name string, upper float64) *engine.Result {
	return &engine.Result{
		Analysis: name,
		Duration: 20 * time.Millisecond,
		Searches: []engine.SearchResult{{
			Name:        "s1",
			Sensitivity: types.Sensitivity{Volume: 2, VolumeError: 0.5},
		}},
		Limits: []engine.Limit{{Confidence: 0.9, Upper: upper}},
	}
}

func failedResult(name string) *engine.Result {
	err := errors.New("boom")
	return &engine.Result{Analysis: name, Err: err, ErrorMessage: err.Error()}
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "0.9", ConfidenceLabel(0.90))
	assert.Equal(t, "0.95", ConfidenceLabel(0.95))
	assert.Equal(t, "0.999", ConfidenceLabel(0.999))
}

func TestPublish(t *testing.T) {
	m := New("upperlimit")
	m.Publish([]*engine.Result{okResult("a", 1.15), failedResult("b")})

	assert.Equal(t, 1.15, testutil.ToFloat64(m.UpperLimit.WithLabelValues("a", "0.9")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SensitiveVolume.WithLabelValues("a", "s1")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.VolumeError.WithLabelValues("a", "s1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisUp.WithLabelValues("a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnalysisUp.WithLabelValues("b")))
}

func TestPublish_DropsRemovedAnalyses(t *testing.T) {
	m := New("upperlimit")
	m.Publish([]*engine.Result{okResult("a", 1), okResult("b", 2)})
	assert.Equal(t, 2, testutil.CollectAndCount(m.UpperLimit))

	m.Publish([]*engine.Result{okResult("b", 3)})
	assert.Equal(t, 1, testutil.CollectAndCount(m.UpperLimit))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UpperLimit.WithLabelValues("b", "0.9")))
}

func TestObserveRunAndCache(t *testing.T) {
	m := New("upperlimit")
	m.ObserveRun(okResult("a", 1))
	m.ObserveRun(okResult("a", 1))
	m.ObserveRun(failedResult("b"))
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ComputeDuration))
}

func TestHandler_ServesPrefixedMetrics(t *testing.T) {
	m := New("ul")
	m.Publish([]*engine.Result{okResult("a", 1.5)})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `ul_upper_limit{analysis="a",confidence="0.9"} 1.5`), body)
	assert.Contains(t, body, "ul_cache_hits_total 0")
}

func TestNew_EmptyPrefix(t *testing.T) {
	m := New("")
	m.Publish([]*engine.Result{okResult("a", 1)})

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "upper_limit")
}
