package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	cerrors "stmigrate/internal/core/errors"
)

type Config struct {
	Version      int          `toml:"version"`
	Scan         Scan         `toml:"scan"`
	Scoring      Scoring      `toml:"scoring"`
	Safety       Safety       `toml:"safety"`
	StateMachine StateMachine `toml:"statemachine"`
	AI           AI           `toml:"ai"`
	Watch        Watch        `toml:"watch"`
}

type Scan struct {
	Roots       []string `toml:"roots"`
	Extensions  []string `toml:"extensions"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	// MaxWorkers bounds the per-file analysis fan-out; 0 means GOMAXPROCS.
	MaxWorkers int `toml:"max_workers"`
}

type Scoring struct {
	Weights    ScoringWeights    `toml:"weights"`
	Thresholds ScoringThresholds `toml:"thresholds"`
}

type ScoringWeights struct {
	Complexity    float64 `toml:"complexity"`
	SafetyRisk    float64 `toml:"safety_risk"`
	Documentation float64 `toml:"documentation"`
	Determinism   float64 `toml:"determinism"`
}

type ScoringThresholds struct {
	UndocumentedStateRatio float64 `toml:"undocumented_state_ratio"`
	MaxStates              int     `toml:"max_states"`
	MaxVariables           int     `toml:"max_variables"`
}

type Safety struct {
	// Extra regex patterns merged into the built-in naming tables so
	// site-specific schemes (German plants, vendor prefixes) can be
	// recognized without a rebuild.
	InterlockPatterns []string `toml:"interlock_patterns"`
	BypassPatterns    []string `toml:"bypass_patterns"`
	// IOChannelPrefixes marks hardware addresses wired to safety
	// channels, e.g. "%IX100".
	IOChannelPrefixes []string `toml:"io_channel_prefixes"`
}

type StateMachine struct {
	// ExtraNamePatterns extends the built-in state-variable naming
	// conventions (state/step/mode/phase/seq family).
	ExtraNamePatterns []string `toml:"extra_name_patterns"`
}

type AI struct {
	TargetLanguage string      `toml:"target_language"`
	Project        ProjectMeta `toml:"project"`
}

type ProjectMeta struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Vendor      string `toml:"vendor"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, toml.MetaData{})
	return cfg
}

// Load reads a TOML file, merges it over the defaults and validates the
// result. Invalid configuration fails here, before any analysis starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeConfigError, "read config file")
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeConfigError, "parse config file")
	}

	applyDefaults(&cfg, md)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in every key the file leaves undefined. Keys the file
// does define are kept verbatim, zero values included, so an explicit bad
// value reaches Validate instead of being silently replaced.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if !md.IsDefined("version") {
		cfg.Version = 1
	}

	if !md.IsDefined("scan", "roots") {
		cfg.Scan.Roots = []string{"."}
	}
	if !md.IsDefined("scan", "extensions") {
		cfg.Scan.Extensions = []string{".st", ".ST", ".pou", ".iecst"}
	}
	if !md.IsDefined("scan", "exclude_dirs") {
		cfg.Scan.ExcludeDirs = []string{".git", "_backup*", "*.bak"}
	}

	if !md.IsDefined("scoring", "weights") {
		cfg.Scoring.Weights = ScoringWeights{
			Complexity:    0.25,
			SafetyRisk:    0.35,
			Documentation: 0.2,
			Determinism:   0.2,
		}
	}

	t := &cfg.Scoring.Thresholds
	if !md.IsDefined("scoring", "thresholds", "undocumented_state_ratio") {
		t.UndocumentedStateRatio = 0.5
	}
	if !md.IsDefined("scoring", "thresholds", "max_states") {
		t.MaxStates = 25
	}
	if !md.IsDefined("scoring", "thresholds", "max_variables") {
		t.MaxVariables = 40
	}

	if !md.IsDefined("ai", "target_language") {
		cfg.AI.TargetLanguage = "python"
	}

	if !md.IsDefined("watch", "debounce") {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
