package main

import (
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/ui"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the three behaviour weights, bounded by the viewer's
// slider range.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "alignment", Path: "flock.alignment_weight", Min: ui.MinWeight, Max: ui.MaxWeight, Default: 1},
			{Name: "cohesion", Path: "flock.cohesion_weight", Min: ui.MinWeight, Max: ui.MaxWeight, Default: 1},
			{Name: "separation", Path: "flock.separation_weight", Min: ui.MinWeight, Max: ui.MaxWeight, Default: 1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to the [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp limits every value to its bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Flock.AlignmentWeight = c[0]
	cfg.Flock.CohesionWeight = c[1]
	cfg.Flock.SeparationWeight = c[2]
}

// ExtractFromConfig reads the current values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Flock.AlignmentWeight,
		cfg.Flock.CohesionWeight,
		cfg.Flock.SeparationWeight,
	}
}
