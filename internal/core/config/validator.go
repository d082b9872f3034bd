package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	cerrors "stmigrate/internal/core/errors"
)

// supportedTargetLanguages mirrors the generator's closed target set.
// Core packages must not depend on engine, so the selector is validated
// against this list; a parity test keeps the two in sync.
var supportedTargetLanguages = []string{"python", "rust", "typescript", "csharp", "go"}

// Validate fails fast on bad configuration. Analysis never starts with a
// half-usable config; a descriptive error beats a silently defaulted run.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validateScoring,
		validateSafety,
		validateStateMachine,
		validateAI,
	} {
		if err := check(cfg); err != nil {
			return cerrors.Wrap(err, cerrors.CodeConfigError, "invalid configuration")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("version must be 1, got %d", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	if len(cfg.Scan.Roots) == 0 {
		return fmt.Errorf("scan.roots must not be empty")
	}
	for _, ext := range cfg.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("scan.extensions entry %q must start with a dot", ext)
		}
	}
	for _, pattern := range cfg.Scan.ExcludeDirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("scan.exclude_dirs pattern %q: %w", pattern, err)
		}
	}
	if cfg.Scan.MaxWorkers < 0 {
		return fmt.Errorf("scan.max_workers must be >= 0")
	}
	return nil
}

func validateScoring(cfg *Config) error {
	w := cfg.Scoring.Weights
	for name, v := range map[string]float64{
		"complexity":    w.Complexity,
		"safety_risk":   w.SafetyRisk,
		"documentation": w.Documentation,
		"determinism":   w.Determinism,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.weights.%s must not be negative, got %f", name, v)
		}
	}
	if w.Complexity+w.SafetyRisk+w.Documentation+w.Determinism <= 0 {
		return fmt.Errorf("scoring.weights must sum to a positive value")
	}

	t := cfg.Scoring.Thresholds
	if t.UndocumentedStateRatio < 0 || t.UndocumentedStateRatio > 1 {
		return fmt.Errorf("scoring.thresholds.undocumented_state_ratio must be within [0, 1], got %f", t.UndocumentedStateRatio)
	}
	if t.MaxStates < 0 || t.MaxVariables < 0 {
		return fmt.Errorf("scoring.thresholds limits must be >= 0")
	}
	return nil
}

func validateSafety(cfg *Config) error {
	for i, pattern := range cfg.Safety.InterlockPatterns {
		if err := validatePattern("safety.interlock_patterns", i, pattern); err != nil {
			return err
		}
	}
	for i, pattern := range cfg.Safety.BypassPatterns {
		if err := validatePattern("safety.bypass_patterns", i, pattern); err != nil {
			return err
		}
	}
	for _, prefix := range cfg.Safety.IOChannelPrefixes {
		if !strings.HasPrefix(prefix, "%") {
			return fmt.Errorf("safety.io_channel_prefixes entry %q must start with %%", prefix)
		}
	}
	return nil
}

func validatePattern(section string, i int, pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("%s[%d] must not be empty", section, i)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%s[%d] %q: %w", section, i, pattern, err)
	}
	return nil
}

func validateStateMachine(cfg *Config) error {
	for _, pattern := range cfg.StateMachine.ExtraNamePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("statemachine.extra_name_patterns %q: %w", pattern, err)
		}
	}
	return nil
}

func validateAI(cfg *Config) error {
	name := strings.ToLower(strings.TrimSpace(cfg.AI.TargetLanguage))
	for _, t := range supportedTargetLanguages {
		if name == t {
			return nil
		}
	}
	return fmt.Errorf("ai.target_language %q not supported, one of: %s",
		cfg.AI.TargetLanguage, strings.Join(supportedTargetLanguages, ", "))
}
