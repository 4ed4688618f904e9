package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/logging"
	"github.com/obsidianstack/upperlimit/pkg/efficiency"
	"github.com/obsidianstack/upperlimit/pkg/limit"
	"github.com/obsidianstack/upperlimit/pkg/posterior"
	"github.com/obsidianstack/upperlimit/pkg/types"
)

// Recorder receives engine events. internal/metrics implements it.
type Recorder interface {
	ObserveRun(r *Result)
	ObserveCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(*Result) {}
func (nopRecorder) ObserveCache(bool)  {}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports runs and cache lookups to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine computes analyses. All exported methods are safe for concurrent use.
type Engine struct {
	workers  atomic.Int64
	cache    *lru.Cache[string, *Result]
	recorder Recorder
	now      func() time.Time
}

// New returns an Engine sized by cfg.
func New(cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	workers, size := sizes(cfg)
	cache, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("engine: create cache: %w", err)
	}
	e := &Engine{
		cache:    cache,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	e.workers.Store(int64(workers))
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reconfigure applies new worker and cache limits. Cached results survive
// unless the cache shrinks below their number.
func (e *Engine) Reconfigure(cfg config.EngineConfig) {
	workers, size := sizes(cfg)
	e.workers.Store(int64(workers))
	if evicted := e.cache.Resize(size); evicted > 0 {
		logger().Info("engine: cache shrunk", "size", size, "evicted", evicted)
	}
}

func sizes(cfg config.EngineConfig) (workers, cacheSize int) {
	workers, cacheSize = cfg.Workers, cfg.CacheSize
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	if cacheSize <= 0 {
		cacheSize = config.DefaultCacheSize
	}
	return workers, cacheSize
}

func logger() *slog.Logger { return logging.WithComponent("engine") }

// Run computes every analysis, at most Workers at a time, and returns the
// results in input order. A failing analysis is reported on its Result;
// Run itself only fails when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, analyses []config.Analysis) ([]*Result, error) {
	results := make([]*Result, len(analyses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(e.workers.Load()))
	for i := range analyses {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.Compute(analyses[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine: run: %w", err)
	}
	return results, nil
}

// Compute evaluates one analysis, consulting the cache first.
func (e *Engine) Compute(a config.Analysis) *Result {
	fp, err := Fingerprint(a)
	if err != nil {
		res := &Result{Analysis: a.Name, ComputedAt: e.now()}
		return res.fail(err)
	}

	if cached, ok := e.cache.Get(fp); ok {
		e.recorder.ObserveCache(true)
		logger().Debug("engine: cache hit", "analysis", a.Name, "fingerprint", fp[:12])
		out := *cached
		out.Cached = true
		return &out
	}
	e.recorder.ObserveCache(false)

	start := e.now()
	res := evaluate(a)
	res.Fingerprint = fp
	res.ComputedAt = start
	res.Duration = e.now().Sub(start)
	e.recorder.ObserveRun(res)

	if !res.OK() {
		logger().Warn("engine: analysis failed", "analysis", a.Name, "err", res.Err)
		return res
	}
	e.cache.Add(fp, res)
	logger().Info("engine: analysis computed",
		"analysis", a.Name,
		"searches", len(res.Searches),
		"grid_points", res.GridPoints,
		"duration", res.Duration,
	)
	return res
}

// Fingerprint returns a stable hash of the analysis definition.
func Fingerprint(a config.Analysis) (string, error) {
	data, err := yaml.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("engine: fingerprint %q: %w", a.Name, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// evaluate does the uncached work for one analysis.
func evaluate(a config.Analysis) *Result {
	res := &Result{Analysis: a.Name}

	sens := make([]types.Sensitivity, 0, len(a.Searches))
	for _, s := range a.Searches {
		sr, err := Resolve(s)
		if err != nil {
			return res.fail(fmt.Errorf("search %q: %w", s.Name, err))
		}
		res.Searches = append(res.Searches, sr)
		sens = append(sens, sr.Sensitivity)
	}

	grid, err := Grid(a.Grid, sens)
	if err != nil {
		return res.fail(err)
	}
	grid, density, err := posterior.Combine(sens, grid, nil)
	if err != nil {
		return res.fail(err)
	}
	res.GridPoints = len(grid)
	res.MaxRate = grid[len(grid)-1]

	for _, c := range a.Confidence {
		l, err := limitsAt(grid, density, c)
		if err != nil {
			return res.fail(fmt.Errorf("confidence %v: %w", c, err))
		}
		res.Limits = append(res.Limits, l)
	}
	return res
}

func limitsAt(grid types.RateGrid, density types.Density, c float64) (Limit, error) {
	up, err := limit.Upper(grid, density, c)
	if err != nil {
		return Limit{}, err
	}
	mw, err := limit.MinWidthInterval(grid, density, c)
	if err != nil {
		return Limit{}, err
	}
	hpd, err := limit.HPD(grid, density, c)
	if err != nil {
		return Limit{}, err
	}
	return Limit{Confidence: c, Upper: up, MinWidth: mw, HPD: hpd}, nil
}

// Resolve turns a configured search into the sensitivity of the search,
// integrating its efficiency curve or injections when needed and scaling
// by its livetime.
func Resolve(s config.Search) (SearchResult, error) {
	var (
		est types.VolumeEstimate
		err error
	)
	switch s.Kind() {
	case "volume":
		est = types.VolumeEstimate{Volume: *s.Volume, Error: s.VolumeError}
	case "efficiency":
		est, err = efficiency.Integrate(types.EfficiencyCurve{
			Edges:      s.Efficiency.BinEdges,
			Efficiency: s.Efficiency.Efficiencies,
			Errors:     s.Efficiency.Errors,
			LogBins:    s.Efficiency.LogBins,
		})
	case "injections":
		inj := s.Injections
		est, err = efficiency.SensitiveVolume(inj.Found, inj.Missed, inj.BinEdges, inj.LogBins)
	default:
		err = fmt.Errorf("no sensitivity source configured")
	}
	if err != nil {
		return SearchResult{}, err
	}

	lt := s.EffectiveLivetime()
	est = est.Scale(lt)
	return SearchResult{
		Name:     s.Name,
		Kind:     s.Kind(),
		Livetime: lt,
		Sensitivity: types.Sensitivity{
			Volume:      est.Volume,
			VolumeError: est.Error,
			Background:  s.Background,
		},
	}, nil
}

// Grid builds the rate grid for an analysis. Without an override the
// posterior package's default policy applies; a points-only override keeps
// the automatic span and shape, and max_rate fixes a linear span.
func Grid(g config.GridConfig, sens []types.Sensitivity) (types.RateGrid, error) {
	if g.IsZero() {
		return posterior.GridFor(sens...)
	}
	if g.MaxRate == 0 {
		return posterior.GridForN(g.Points, sens...)
	}
	points := g.Points
	if points == 0 {
		points = posterior.DefaultGridPoints
	}
	return posterior.Linear(g.MaxRate, points)
}
