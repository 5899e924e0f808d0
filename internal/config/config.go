// Package config loads planner tuning parameters from an optional YAML
// file, following the teacher's viper-based FromYaml idiom, simplified to a
// single flat struct since the planner has no per-algorithm config payload.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"highwayplanner/internal/vehicle"
)

// Planner holds the tunable constants a deployment may want to override
// without a rebuild. Any field left unset in the YAML file keeps its
// compiled-in default (see internal/vehicle for the defaults).
type Planner struct {
	SpeedLimitMph               *float64 `yaml:"speedLimitMph"`
	LaneWidthMeters             *float64 `yaml:"laneWidthMeters"`
	AccelStepMph                *float64 `yaml:"accelStepMph"`
	LeadDistanceThresholdMeters *float64 `yaml:"leadDistanceThresholdMeters"`
	SafetyDistanceMeters        *float64 `yaml:"safetyDistanceMeters"`
	MinimumGapMeters            *float64 `yaml:"minimumGapMeters"`
	PlanningHorizonPoints       *int     `yaml:"planningHorizonPoints"`
}

// Defaults returns the compiled-in constants as a Planner, for callers that
// want a fully-populated struct regardless of whether a config file exists.
func Defaults() Planner {
	speedLimitMph := vehicle.SpeedLimitMPS / 0.44704
	laneWidth := vehicle.LaneWidthMeters
	accelStepMph := vehicle.AccelStepMPS / 0.44704
	leadDist := vehicle.LeadDistanceThresholdMeters
	safety := vehicle.SafetyDistanceMeters
	minGap := vehicle.MinimumGapMeters
	horizon := vehicle.PathLength

	return Planner{
		SpeedLimitMph:               &speedLimitMph,
		LaneWidthMeters:             &laneWidth,
		AccelStepMph:                &accelStepMph,
		LeadDistanceThresholdMeters: &leadDist,
		SafetyDistanceMeters:        &safety,
		MinimumGapMeters:            &minGap,
		PlanningHorizonPoints:       &horizon,
	}
}

// Load reads path as YAML and merges it over Defaults(). A missing file at
// the default path is not an error: the caller gets compiled-in defaults
// back. A missing file at an explicitly-requested path is an error, left
// for the caller (cmd/planner) to treat as fatal.
func Load(path string, explicit bool) (Planner, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	override := Planner{}
	if err := vp.Unmarshal(&override); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	applyOverrides(&cfg, override)
	return cfg, nil
}

func applyOverrides(cfg *Planner, override Planner) {
	if override.SpeedLimitMph != nil {
		cfg.SpeedLimitMph = override.SpeedLimitMph
	}
	if override.LaneWidthMeters != nil {
		cfg.LaneWidthMeters = override.LaneWidthMeters
	}
	if override.AccelStepMph != nil {
		cfg.AccelStepMph = override.AccelStepMph
	}
	if override.LeadDistanceThresholdMeters != nil {
		cfg.LeadDistanceThresholdMeters = override.LeadDistanceThresholdMeters
	}
	if override.SafetyDistanceMeters != nil {
		cfg.SafetyDistanceMeters = override.SafetyDistanceMeters
	}
	if override.MinimumGapMeters != nil {
		cfg.MinimumGapMeters = override.MinimumGapMeters
	}
	if override.PlanningHorizonPoints != nil {
		cfg.PlanningHorizonPoints = override.PlanningHorizonPoints
	}
}

// SpeedLimitMPS converts the configured mph value to meters/second.
func (p Planner) SpeedLimitMPS() float64 {
	return *p.SpeedLimitMph * 0.44704
}

// AccelStepMPS converts the configured mph value to meters/second.
func (p Planner) AccelStepMPS() float64 {
	return *p.AccelStepMph * 0.44704
}

// YAML renders the effective configuration back to YAML, for startup
// logging of the resolved values (defaults merged with any file override).
func (p Planner) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// ToVehicleParams converts the resolved configuration into the runtime
// vehicle.Params the behavior and trajectory layers consume, so a config
// override actually changes the effective speed limit/lane width/etc. used
// in planning, not just what gets logged at startup (§8 S8).
func (p Planner) ToVehicleParams() vehicle.Params {
	speedLimit := p.SpeedLimitMPS()
	return vehicle.Params{
		SpeedLimitMPS:               speedLimit,
		CruiseTargetMPS:             speedLimit - 0.5,
		LaneWidthMeters:             *p.LaneWidthMeters,
		AccelStepMPS:                p.AccelStepMPS(),
		LeadDistanceThresholdMeters: *p.LeadDistanceThresholdMeters,
		SafetyDistanceMeters:        *p.SafetyDistanceMeters,
		MinimumGapMeters:            *p.MinimumGapMeters,
		PathLength:                  *p.PlanningHorizonPoints,
	}
}
