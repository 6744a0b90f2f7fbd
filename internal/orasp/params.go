package orasp

import (
	"fmt"
	"math"
)

// Upper bounds on the numeric knobs. They keep every derived quantity
// (sums of durations, scaled setups, slacked windows, Tmax, M) well inside
// int range, so accepted params can never overflow during sampling.
const (
	// MaxDuration bounds any single duration or setup value, in minutes.
	MaxDuration = 1_000_000
	// MaxEntities bounds the operation, surgeon and room counts; the
	// setup matrix alone holds operations² entries.
	MaxEntities = 5_000
	// MaxSlack bounds HorizonSlack and WindowSlack.
	MaxSlack = 100.0
	// MaxHorizon bounds an explicit Horizon and BigMFloor.
	MaxHorizon = math.MaxInt32
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min" yaml:"min" mapstructure:"min"`
	Max int `json:"max" yaml:"max" mapstructure:"max"`
}

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Min, r.Max) }

// Distribution of surgery times.
type Distribution string

const (
	DistUniform   Distribution = "uniform"
	DistLognormal Distribution = "lognormal"
)

// TypeMode selects how operation types are assigned.
type TypeMode string

const (
	// TypeUniform draws every operation type independently.
	TypeUniform TypeMode = "uniform"
	// TypeSpecialty gives each surgeon a specialty; an operation inherits the
	// specialty of its lowest-indexed capable surgeon.
	TypeSpecialty TypeMode = "specialty"
)

// CapabilityMode selects how the surgeon capability matrix is sampled
// before repair.
type CapabilityMode string

const (
	CapabilityRandom     CapabilityMode = "random"
	CapabilityRoundRobin CapabilityMode = "round-robin"
)

// WindowMode selects how surgeon availability windows are built.
type WindowMode string

const (
	WindowWorkload WindowMode = "workload"
	WindowFullDay  WindowMode = "full-day"
)

// Params are the difficulty knobs of the generator.
type Params struct {
	PrepTime     Range        `json:"prep_time" yaml:"prep_time" mapstructure:"prep_time"`
	SurgeryTime  Range        `json:"surgery_time" yaml:"surgery_time" mapstructure:"surgery_time"`
	SurgeryDist  Distribution `json:"surgery_dist" yaml:"surgery_dist" mapstructure:"surgery_dist"`
	SurgeryMu    float64      `json:"surgery_mu" yaml:"surgery_mu" mapstructure:"surgery_mu"`
	SurgerySigma float64      `json:"surgery_sigma" yaml:"surgery_sigma" mapstructure:"surgery_sigma"`
	CleanTime    Range        `json:"clean_time" yaml:"clean_time" mapstructure:"clean_time"`

	CompatibilityDensity float64 `json:"compatibility_density" yaml:"compatibility_density" mapstructure:"compatibility_density"`
	CapabilityDensity    float64 `json:"capability_density" yaml:"capability_density" mapstructure:"capability_density"`
	AllRoomsAvailable    bool    `json:"all_rooms_available" yaml:"all_rooms_available" mapstructure:"all_rooms_available"`

	OperationTypes int            `json:"operation_types" yaml:"operation_types" mapstructure:"operation_types"`
	TypeMode       TypeMode       `json:"type_mode" yaml:"type_mode" mapstructure:"type_mode"`
	CapabilityMode CapabilityMode `json:"capability_mode" yaml:"capability_mode" mapstructure:"capability_mode"`

	SetupTimes     bool    `json:"setup_times" yaml:"setup_times" mapstructure:"setup_times"`
	MaxSetupTime   int     `json:"max_setup_time" yaml:"max_setup_time" mapstructure:"max_setup_time"`
	SetupScale     float64 `json:"setup_scale" yaml:"setup_scale" mapstructure:"setup_scale"`
	SameTypeSetup  int     `json:"same_type_setup" yaml:"same_type_setup" mapstructure:"same_type_setup"`
	SymmetricSetup bool    `json:"symmetric_setup" yaml:"symmetric_setup" mapstructure:"symmetric_setup"`

	// Horizon overrides Tmax when > 0.
	Horizon      int     `json:"horizon" yaml:"horizon" mapstructure:"horizon"`
	HorizonSlack float64 `json:"horizon_slack" yaml:"horizon_slack" mapstructure:"horizon_slack"`

	WindowMode       WindowMode `json:"window_mode" yaml:"window_mode" mapstructure:"window_mode"`
	WindowSlack      float64    `json:"window_slack" yaml:"window_slack" mapstructure:"window_slack"`
	WindowSubsetRate float64    `json:"window_subset_rate" yaml:"window_subset_rate" mapstructure:"window_subset_rate"`

	// BigMFloor is a lower bound for M; 0 keeps the derived value.
	BigMFloor int `json:"big_m_floor" yaml:"big_m_floor" mapstructure:"big_m_floor"`
}

func DefaultParams() Params {
	return Params{
		PrepTime:     Range{Min: 5, Max: 30},
		SurgeryTime:  Range{Min: 20, Max: 300},
		SurgeryDist:  DistLognormal,
		SurgeryMu:    4.0,
		SurgerySigma: 0.5,
		CleanTime:    Range{Min: 10, Max: 20},

		CompatibilityDensity: 0.9,
		CapabilityDensity:    0.5,

		OperationTypes: 4,
		TypeMode:       TypeUniform,
		CapabilityMode: CapabilityRandom,

		SetupTimes:   true,
		MaxSetupTime: 30,
		SetupScale:   1.0,

		HorizonSlack: 1.25,

		WindowMode:       WindowWorkload,
		WindowSlack:      1.5,
		WindowSubsetRate: 0.5,
	}
}

// MaxTotalTime is the largest TT any operation can receive.
func (p Params) MaxTotalTime() int {
	return p.PrepTime.Max + p.SurgeryTime.Max + p.CleanTime.Max
}

func validateRange(field string, r Range) error {
	if r.Min <= 0 {
		return invalidf(field, "min must be > 0 (got %d)", r.Min)
	}
	if r.Max < r.Min {
		return invalidf(field, "max must be >= min (got %s)", r)
	}
	if r.Max > MaxDuration {
		return invalidf(field, "max must be <= %d (got %d)", MaxDuration, r.Max)
	}
	return nil
}

// validateRate also rejects NaN, which fails every ordered comparison.
func validateRate(field string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return invalidf(field, "must be in [0,1] (got %f)", v)
	}
	return nil
}

func validateSlack(field string, v float64) error {
	if !(v >= 1 && v <= MaxSlack) {
		return invalidf(field, "must be in [1,%g] (got %f)", MaxSlack, v)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (p Params) Validate() error {
	if err := validateRange("prep_time", p.PrepTime); err != nil {
		return err
	}
	if err := validateRange("surgery_time", p.SurgeryTime); err != nil {
		return err
	}
	if err := validateRange("clean_time", p.CleanTime); err != nil {
		return err
	}
	switch p.SurgeryDist {
	case DistUniform:
	case DistLognormal:
		if !finite(p.SurgeryMu) {
			return invalidf("surgery_mu", "must be finite (got %f)", p.SurgeryMu)
		}
		if !finite(p.SurgerySigma) || p.SurgerySigma < 0 {
			return invalidf("surgery_sigma", "must be >= 0 (got %f)", p.SurgerySigma)
		}
	default:
		return invalidf("surgery_dist", "unknown distribution %q", p.SurgeryDist)
	}

	if err := validateRate("compatibility_density", p.CompatibilityDensity); err != nil {
		return err
	}
	if err := validateRate("capability_density", p.CapabilityDensity); err != nil {
		return err
	}

	if p.OperationTypes < 1 {
		return invalidf("operation_types", "must be >= 1 (got %d)", p.OperationTypes)
	}
	switch p.TypeMode {
	case TypeUniform, TypeSpecialty:
	default:
		return invalidf("type_mode", "unknown type mode %q", p.TypeMode)
	}
	switch p.CapabilityMode {
	case CapabilityRandom, CapabilityRoundRobin:
	default:
		return invalidf("capability_mode", "unknown capability mode %q", p.CapabilityMode)
	}

	if p.MaxSetupTime < 0 || p.MaxSetupTime > MaxDuration {
		return invalidf("max_setup_time", "must be in [0,%d] (got %d)", MaxDuration, p.MaxSetupTime)
	}
	if !finite(p.SetupScale) || p.SetupScale < 0 {
		return invalidf("setup_scale", "must be finite and >= 0 (got %f)", p.SetupScale)
	}
	if scaled := float64(p.MaxSetupTime) * p.SetupScale; scaled > MaxDuration {
		return invalidf("setup_scale", "max_setup_time*setup_scale must be <= %d (got %g)", MaxDuration, scaled)
	}
	if p.SameTypeSetup < 0 || p.SameTypeSetup > MaxDuration {
		return invalidf("same_type_setup", "must be in [0,%d] (got %d)", MaxDuration, p.SameTypeSetup)
	}

	if p.Horizon < 0 || p.Horizon > MaxHorizon {
		return invalidf("horizon", "must be in [0,%d] (got %d)", MaxHorizon, p.Horizon)
	}
	if p.Horizon > 0 && p.Horizon < p.MaxTotalTime() {
		return invalidf("horizon", "must be >= largest possible operation time %d (got %d)", p.MaxTotalTime(), p.Horizon)
	}
	if err := validateSlack("horizon_slack", p.HorizonSlack); err != nil {
		return err
	}

	switch p.WindowMode {
	case WindowWorkload, WindowFullDay:
	default:
		return invalidf("window_mode", "unknown window mode %q", p.WindowMode)
	}
	if err := validateSlack("window_slack", p.WindowSlack); err != nil {
		return err
	}
	if !(p.WindowSubsetRate > 0 && p.WindowSubsetRate <= 1) {
		return invalidf("window_subset_rate", "must be in (0,1] (got %f)", p.WindowSubsetRate)
	}
	if p.BigMFloor < 0 || p.BigMFloor > MaxHorizon {
		return invalidf("big_m_floor", "must be in [0,%d] (got %d)", MaxHorizon, p.BigMFloor)
	}
	return nil
}
