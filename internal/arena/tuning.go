package arena

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every runtime constant a scenario might want to override.
// Loaded from YAML; zero-valued fields fall back to DefaultTuning.
type Tuning struct {
	TickRateHz  int     `yaml:"tick_rate_hz"`
	ArenaWidth  float64 `yaml:"arena_width"`
	ArenaHeight float64 `yaml:"arena_height"`

	// Force arbitration.
	ManagedLocalWeight float64 `yaml:"managed_local_weight"`

	// Formation director.
	MaxActiveFormations int     `yaml:"max_active_formations"`
	SpawnIntervalSec    float64 `yaml:"spawn_interval_sec"`
	PopulationCap       int     `yaml:"population_cap"`
	PopulationGateRatio float64 `yaml:"population_gate_ratio"`
	SpawnRadius         float64 `yaml:"spawn_radius"`
	SlotGain            float64 `yaml:"slot_gain"`
	CloseSpeedBoost     float64 `yaml:"close_speed_boost"`
	CloseSpinBoost      float64 `yaml:"close_spin_boost"`

	Flock     FlockTuning     `yaml:"flock"`
	Collision CollisionTuning `yaml:"collision"`
	Drift     DriftTuning     `yaml:"drift"`
}

// FlockTuning controls the local-behaviour producer.
type FlockTuning struct {
	VisualRange     float64 `yaml:"visual_range"`
	ProtectedRange  float64 `yaml:"protected_range"`
	CenteringFactor float64 `yaml:"centering_factor"`
	AvoidFactor     float64 `yaml:"avoid_factor"`
	MatchingFactor  float64 `yaml:"matching_factor"`
}

// CollisionTuning controls the hard-overlap producer.
type CollisionTuning struct {
	PushStrength float64 `yaml:"push_strength"`
}

// DriftTuning controls the environmental drift field.
type DriftTuning struct {
	Strength  float64 `yaml:"strength"`
	Scale     float64 `yaml:"scale"`
	TimeScale float64 `yaml:"time_scale"`
}

// DefaultTuning returns the baseline values used by the game binary and by
// tests that don't override anything.
func DefaultTuning() Tuning {
	return Tuning{
		TickRateHz:  60,
		ArenaWidth:  1280,
		ArenaHeight: 720,

		ManagedLocalWeight: defaultManagedLocalWeight,

		MaxActiveFormations: 3,
		SpawnIntervalSec:    9.0,
		PopulationCap:       120,
		PopulationGateRatio: 0.80,
		SpawnRadius:         520,
		SlotGain:            4.5,
		CloseSpeedBoost:     1.4,
		CloseSpinBoost:      1.0,

		Flock: FlockTuning{
			VisualRange:     90,
			ProtectedRange:  22,
			CenteringFactor: 0.25,
			AvoidFactor:     6.0,
			MatchingFactor:  0.8,
		},
		Collision: CollisionTuning{
			PushStrength: 220,
		},
		Drift: DriftTuning{
			Strength:  14,
			Scale:     1.0 / 400.0,
			TimeScale: 0.05,
		},
	}
}

// LoadTuning reads a YAML tuning file over the defaults, so a partial file
// only overrides what it names.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}
