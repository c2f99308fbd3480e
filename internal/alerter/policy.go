package alerter

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultCooldownMinutes is the hard-coded cooldown applied when no
// override configures one.
const DefaultCooldownMinutes = 20

// CooldownEnvVar holds a JSON object mapping category name to a
// cooldown spec in any shape ParseCooldown accepts.
const CooldownEnvVar = "SOLWATCH_COOLDOWNS"

// CooldownPolicy is the per-category cooldown table. Immutable after
// construction for the process lifetime.
type CooldownPolicy struct {
	Default    time.Duration
	categories map[string]time.Duration
}

// For returns the cooldown for a category, falling back to the default
// when no explicit entry exists.
func (p CooldownPolicy) For(category string) time.Duration {
	if d, ok := p.categories[category]; ok {
		return d
	}
	return p.Default
}

// Categories returns a copy of the explicit per-category entries.
func (p CooldownPolicy) Categories() map[string]time.Duration {
	out := make(map[string]time.Duration, len(p.categories))
	for k, v := range p.categories {
		out[k] = v
	}
	return out
}

// BuildCooldownPolicy merges the three override sources into one table.
// Precedence, lowest to highest: the hard-coded default (floored by the
// max-per-hour ceiling), the first existing YAML file among
// candidatePaths, then the CooldownEnvVar JSON map. Parse failures in
// any source are logged and that source is skipped; this never fails.
func BuildCooldownPolicy(log zerolog.Logger, maxPerHour int, candidatePaths []string) CooldownPolicy {
	log = log.With().Str("component", "cooldown-policy").Logger()

	def := float64(DefaultCooldownMinutes)
	if maxPerHour > 0 {
		if floor := 60 / float64(maxPerHour); floor > def {
			def = floor
		}
	}

	policy := CooldownPolicy{
		Default:    minutesToDuration(def),
		categories: make(map[string]time.Duration),
	}

	applyFileOverrides(log, &policy, candidatePaths)
	applyEnvOverrides(log, &policy)

	log.Debug().
		Dur("default", policy.Default).
		Int("categories", len(policy.categories)).
		Msg("Cooldown policy built")

	return policy
}

// applyFileOverrides reads the first existing candidate file. The
// document may carry a global.default_cooldown key and any number of
// named sections whose entries contain a cooldown key; each such entry
// populates that category.
func applyFileOverrides(log zerolog.Logger, policy *CooldownPolicy, candidatePaths []string) {
	var path string
	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to read cooldown file, ignoring")
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Malformed cooldown file, ignoring")
		return
	}

	if global, ok := doc["global"].(map[string]any); ok {
		if spec, ok := global["default_cooldown"]; ok {
			policy.Default = ParseCooldown(log, spec, durationToMinutes(policy.Default))
		}
	}

	for sectionName, section := range doc {
		if sectionName == "global" {
			continue
		}
		entries, ok := section.(map[string]any)
		if !ok {
			continue
		}
		for category, entry := range entries {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			spec, ok := fields["cooldown"]
			if !ok {
				continue
			}
			policy.categories[category] = ParseCooldown(log, spec, durationToMinutes(policy.Default))
		}
	}
}

// applyEnvOverrides parses the env JSON map with the then-current
// default as fallback. Malformed JSON is logged and ignored.
func applyEnvOverrides(log zerolog.Logger, policy *CooldownPolicy) {
	raw := os.Getenv(CooldownEnvVar)
	if raw == "" {
		return
	}

	var overrides map[string]any
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		log.Warn().Err(err).Str("env", CooldownEnvVar).Msg("Malformed cooldown env override, ignoring")
		return
	}

	for category, spec := range overrides {
		policy.categories[category] = ParseCooldown(log, spec, durationToMinutes(policy.Default))
	}
}

func durationToMinutes(d time.Duration) float64 {
	return d.Minutes()
}
