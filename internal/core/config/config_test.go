package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cerrors "stmigrate/internal/core/errors"
	"stmigrate/internal/engine/aicontext"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stmigrate.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	if cfg.AI.TargetLanguage != "python" {
		t.Errorf("default target = %q", cfg.AI.TargetLanguage)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("default debounce = %v", cfg.Watch.Debounce)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
version = 1

[scan]
roots = ["plc/src"]

[scoring.weights]
complexity = 0.1
safety_risk = 0.6
documentation = 0.2
determinism = 0.1

[ai]
target_language = "rust"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.Roots[0] != "plc/src" {
		t.Errorf("roots not applied: %v", cfg.Scan.Roots)
	}
	if cfg.Scoring.Weights.SafetyRisk != 0.6 {
		t.Errorf("weights not applied: %+v", cfg.Scoring.Weights)
	}
	if cfg.AI.TargetLanguage != "rust" {
		t.Errorf("target not applied: %q", cfg.AI.TargetLanguage)
	}
	if len(cfg.Scan.Extensions) == 0 {
		t.Error("extension defaults dropped on merge")
	}
	if cfg.Scoring.Thresholds.MaxStates != 25 {
		t.Errorf("threshold defaults dropped: %+v", cfg.Scoring.Thresholds)
	}
}

func TestExplicitZeroRatioKept(t *testing.T) {
	path := writeConfig(t, `
[scoring.thresholds]
undocumented_state_ratio = 0.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scoring.Thresholds.UndocumentedStateRatio != 0 {
		t.Errorf("explicit 0.0 replaced with %f", cfg.Scoring.Thresholds.UndocumentedStateRatio)
	}
	if cfg.Scoring.Thresholds.MaxStates != 25 {
		t.Errorf("undefined threshold not defaulted: %+v", cfg.Scoring.Thresholds)
	}
}

func TestExplicitZeroWeightsRejected(t *testing.T) {
	path := writeConfig(t, `
[scoring.weights]
complexity = 0.0
safety_risk = 0.0
documentation = 0.0
determinism = 0.0
`)
	if _, err := Load(path); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("all-zero weights silently defaulted: %v", err)
	}
}

func TestNegativeWeightFails(t *testing.T) {
	path := writeConfig(t, `
[scoring.weights]
complexity = -0.5
safety_risk = 0.5
documentation = 0.5
determinism = 0.5
`)
	if _, err := Load(path); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("negative weight accepted: %v", err)
	}
}

func TestUnknownTargetLanguageFails(t *testing.T) {
	path := writeConfig(t, `
[ai]
target_language = "fortran"
`)
	if _, err := Load(path); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("unknown target accepted: %v", err)
	}
}

func TestBadInterlockPatternFails(t *testing.T) {
	path := writeConfig(t, `
[safety]
interlock_patterns = ["([unclosed"]
`)
	if _, err := Load(path); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("bad regex accepted: %v", err)
	}
}

func TestBadExcludeGlobFails(t *testing.T) {
	path := writeConfig(t, `
[scan]
exclude_dirs = ["[unclosed"]
`)
	if _, err := Load(path); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("bad glob accepted: %v", err)
	}
}

func TestBadIOPrefixFails(t *testing.T) {
	cfg := Default()
	cfg.Safety.IOChannelPrefixes = []string{"IX100"}
	if err := Validate(cfg); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("prefix without %% accepted: %v", err)
	}
}

func TestMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); !cerrors.IsCode(err, cerrors.CodeConfigError) {
		t.Errorf("missing file returned %v", err)
	}
}

func TestTargetListMatchesGenerator(t *testing.T) {
	if got, want := len(supportedTargetLanguages), len(aicontext.Targets()); got != want {
		t.Fatalf("target list has %d entries, generator has %d", got, want)
	}
	for _, name := range supportedTargetLanguages {
		if _, err := aicontext.ParseTarget(name); err != nil {
			t.Errorf("%q accepted here but rejected by the generator: %v", name, err)
		}
	}
}
