package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultHTTPPort      = 8080
	DefaultWorkers       = 4
	DefaultCacheSize     = 128
	DefaultReloadDelay   = 250 * time.Millisecond
	DefaultConfidence    = 0.90
	DefaultLivetime      = 1.0
	DefaultMetricsPrefix = "upperlimit"
)

// Config is the top-level configuration. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Logging  LoggingConfig `yaml:"logging"`
	Engine   EngineConfig  `yaml:"engine"`
	Server   ServerConfig  `yaml:"server"`
	Grid     GridConfig    `yaml:"grid"`
	Analyses []Analysis    `yaml:"analyses"`
}

// LoggingConfig controls the slog handler installed at startup.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// EngineConfig controls how analyses are evaluated.
type EngineConfig struct {
	// Workers bounds how many independent analyses are computed at once.
	Workers int `yaml:"workers"`

	// CacheSize is the number of analysis results kept so that unchanged
	// analyses are not recomputed after a config reload.
	CacheSize int `yaml:"cache_size"`
}

// ServerConfig holds settings for `ulcalc serve`.
type ServerConfig struct {
	// HTTPPort is the port the REST API and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// MetricsPrefix is prepended to every exported metric name.
	MetricsPrefix string `yaml:"metrics_prefix"`

	// ReloadDelay coalesces bursts of file events into one recompute.
	ReloadDelay time.Duration `yaml:"reload_delay"`
}

// GridConfig overrides the default rate grid. A zero MaxRate lets the
// posterior package size the grid from the searches' total volume.
type GridConfig struct {
	Points  int     `yaml:"points"`
	MaxRate float64 `yaml:"max_rate"`
}

// IsZero reports whether no override is configured.
func (g GridConfig) IsZero() bool {
	return g.Points == 0 && g.MaxRate == 0
}

// Analysis is one chain of independent searches combined into a single
// posterior.
type Analysis struct {
	// Name uniquely identifies the analysis in logs, metrics and the API.
	Name string `yaml:"name"`

	// Confidence lists the credible levels to report (default [0.90]).
	Confidence []float64 `yaml:"confidence"`

	// Grid overrides the top-level grid for this analysis.
	Grid GridConfig `yaml:"grid"`

	// Searches are folded in order; each posterior is the next prior.
	Searches []Search `yaml:"searches"`
}

// Search describes one search. Exactly one of Volume, Efficiency or
// Injections must be set.
type Search struct {
	Name string `yaml:"name"`

	// Volume is a precomputed sensitive volume, with VolumeError its
	// uncertainty.
	Volume      *float64 `yaml:"volume"`
	VolumeError float64  `yaml:"volume_error"`

	// Efficiency is an efficiency curve integrated into a volume.
	Efficiency *EfficiencySource `yaml:"efficiency"`

	// Injections are found/missed distances binned into a curve.
	Injections *InjectionSource `yaml:"injections"`

	// Background is the expected background count λ.
	Background float64 `yaml:"background"`

	// Livetime multiplies the volume so the rate is per volume-time.
	// Unset means DefaultLivetime; an explicit 0 means no exposure, which
	// leaves the analysis unchanged.
	Livetime *float64 `yaml:"livetime"`
}

// EfficiencySource is an efficiency curve given inline.
type EfficiencySource struct {
	BinEdges     []float64 `yaml:"bin_edges"`
	Efficiencies []float64 `yaml:"efficiencies"`
	Errors       []float64 `yaml:"errors"`
	LogBins      bool      `yaml:"logbins"`
}

// InjectionSource is a set of injection distances given inline.
type InjectionSource struct {
	BinEdges []float64 `yaml:"bin_edges"`
	Found    []float64 `yaml:"found"`
	Missed   []float64 `yaml:"missed"`
	LogBins  bool      `yaml:"logbins"`
}

// EffectiveLivetime returns Livetime, or DefaultLivetime when unset.
func (s Search) EffectiveLivetime() float64 {
	if s.Livetime == nil {
		return DefaultLivetime
	}
	return *s.Livetime
}

// Kind returns which source the search uses: volume | efficiency | injections.
func (s Search) Kind() string {
	switch {
	case s.Volume != nil:
		return "volume"
	case s.Efficiency != nil:
		return "efficiency"
	case s.Injections != nil:
		return "injections"
	default:
		return ""
	}
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyAnalysisDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Engine: EngineConfig{
			Workers:   DefaultWorkers,
			CacheSize: DefaultCacheSize,
		},
		Server: ServerConfig{
			HTTPPort:      DefaultHTTPPort,
			MetricsPrefix: DefaultMetricsPrefix,
			ReloadDelay:   DefaultReloadDelay,
		},
	}
}

// applyAnalysisDefaults fills per-analysis fields that yaml cannot default
// inside slices.
func applyAnalysisDefaults(cfg *Config) {
	for i := range cfg.Analyses {
		a := &cfg.Analyses[i]
		if len(a.Confidence) == 0 {
			a.Confidence = []float64{DefaultConfidence}
		}
		if a.Grid.IsZero() {
			a.Grid = cfg.Grid
		}
		for j := range a.Searches {
			if a.Searches[j].Name == "" {
				a.Searches[j].Name = fmt.Sprintf("search-%d", j)
			}
		}
	}
}

// validate checks required fields and structural constraints. Numeric
// checks on curves and volumes are left to the statistical packages.
func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format)
	}
	if cfg.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive")
	}
	if cfg.Engine.CacheSize <= 0 {
		return fmt.Errorf("engine.cache_size must be positive")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if err := validateGrid("grid", cfg.Grid); err != nil {
		return err
	}
	if len(cfg.Analyses) == 0 {
		return fmt.Errorf("at least one analysis is required")
	}

	seen := make(map[string]bool, len(cfg.Analyses))
	for i, a := range cfg.Analyses {
		if a.Name == "" {
			return fmt.Errorf("analyses[%d]: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("analyses[%d]: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true

		for _, c := range a.Confidence {
			if math.IsNaN(c) || c <= 0 || c >= 1 {
				return fmt.Errorf("analyses[%d] %q: confidence %v must be strictly between 0 and 1", i, a.Name, c)
			}
		}
		if err := validateGrid(fmt.Sprintf("analyses[%d] %q: grid", i, a.Name), a.Grid); err != nil {
			return err
		}
		if len(a.Searches) == 0 {
			return fmt.Errorf("analyses[%d] %q: at least one search is required", i, a.Name)
		}
		for j, s := range a.Searches {
			if err := validateSearch(s); err != nil {
				return fmt.Errorf("analyses[%d] %q: searches[%d] %q: %w", i, a.Name, j, s.Name, err)
			}
		}
	}
	return nil
}

func validateGrid(field string, g GridConfig) error {
	if g.Points < 0 || g.Points == 1 {
		return fmt.Errorf("%s.points must be 0 (default) or at least 2", field)
	}
	if g.MaxRate < 0 {
		return fmt.Errorf("%s.max_rate must be non-negative", field)
	}
	return nil
}

func validateSearch(s Search) error {
	sources := 0
	for _, set := range []bool{s.Volume != nil, s.Efficiency != nil, s.Injections != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of volume, efficiency or injections is required, got %d", sources)
	}
	if s.Volume != nil && *s.Volume < 0 {
		return fmt.Errorf("volume must be non-negative")
	}
	if s.VolumeError < 0 {
		return fmt.Errorf("volume_error must be non-negative")
	}
	if s.Volume == nil && s.VolumeError != 0 {
		return fmt.Errorf("volume_error only applies to a precomputed volume")
	}
	if s.Background < 0 {
		return fmt.Errorf("background must be non-negative")
	}
	if s.Livetime != nil && (math.IsNaN(*s.Livetime) || *s.Livetime < 0 || math.IsInf(*s.Livetime, 1)) {
		return fmt.Errorf("livetime must be finite and non-negative")
	}
	if s.Efficiency != nil && len(s.Efficiency.BinEdges) == 0 {
		return fmt.Errorf("efficiency.bin_edges is required")
	}
	if s.Injections != nil && len(s.Injections.BinEdges) == 0 {
		return fmt.Errorf("injections.bin_edges is required")
	}
	return nil
}
