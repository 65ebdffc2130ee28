package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var ErrInvalidBalance = errors.New("invalid balance config")

// Balance holds every tuning constant used by the formulas, the control law
// and the physics world.
type Balance struct {
	Environment Environment `json:"environment" yaml:"environment" envPrefix:"ENV_"`
	Flow        FlowZone    `json:"flow" yaml:"flow" envPrefix:"FLOW_"`
	Gradient    Gradient    `json:"gradient" yaml:"gradient" envPrefix:"GRADIENT_"`
	Viscous     ViscousZone `json:"viscous" yaml:"viscous" envPrefix:"VISCOUS_"`
	Curvature   Curvature   `json:"curvature" yaml:"curvature" envPrefix:"CURVATURE_"`
	Control     Control     `json:"control" yaml:"control" envPrefix:"CONTROL_"`
	Physics     Physics     `json:"physics" yaml:"physics" envPrefix:"PHYSICS_"`
	Course      Course      `json:"course" yaml:"course" envPrefix:"COURSE_"`
	ZoneLengths ZoneLengths `json:"zone_lengths" yaml:"zone_lengths" envPrefix:"ZONE_LENGTH_"`
}

// Environment describes the medium shared by every racer.
type Environment struct {
	FlowSpeed float64 `json:"flow_speed" yaml:"flow_speed" env:"FLOW_SPEED"`
	Viscosity float64 `json:"viscosity" yaml:"viscosity" env:"VISCOSITY"`
}

type FlowZone struct {
	AlignmentGain float64 `json:"alignment_gain" yaml:"alignment_gain" env:"ALIGNMENT_GAIN"`
	MaxBoost      float64 `json:"max_boost" yaml:"max_boost" env:"MAX_BOOST"`
}

// Gradient tunes the hyperburst process and the chemotaxis bonus.
type Gradient struct {
	BaseRate        float64 `json:"base_rate" yaml:"base_rate" env:"BASE_RATE"` // bursts per second before scaling
	SignalScale     float64 `json:"signal_scale" yaml:"signal_scale" env:"SIGNAL_SCALE"`
	MaxRate         float64 `json:"max_rate" yaml:"max_rate" env:"MAX_RATE"`
	CheckInterval   float64 `json:"check_interval" yaml:"check_interval" env:"CHECK_INTERVAL"`
	Duration        float64 `json:"duration" yaml:"duration" env:"DURATION"`
	VCLFactor       float64 `json:"vcl_factor" yaml:"vcl_factor" env:"VCL_FACTOR"`
	LinearityFactor float64 `json:"linearity_factor" yaml:"linearity_factor" env:"LINEARITY_FACTOR"`
	ChemotaxisBonus float64 `json:"chemotaxis_bonus" yaml:"chemotaxis_bonus" env:"CHEMOTAXIS_BONUS"`
}

type ViscousZone struct {
	DragScale      float64 `json:"drag_scale" yaml:"drag_scale" env:"DRAG_SCALE"`
	FlowMitigation float64 `json:"flow_mitigation" yaml:"flow_mitigation" env:"FLOW_MITIGATION"`
	MaxPenalty     float64 `json:"max_penalty" yaml:"max_penalty" env:"MAX_PENALTY"`
}

type Curvature struct {
	Scale      float64 `json:"scale" yaml:"scale" env:"SCALE"`
	Mitigation float64 `json:"mitigation" yaml:"mitigation" env:"MITIGATION"`
	Floor      float64 `json:"floor" yaml:"floor" env:"FLOOR"`
	Ceiling    float64 `json:"ceiling" yaml:"ceiling" env:"CEILING"`
}

// Control shapes the per-racer control parameters derived from stats.
type Control struct {
	BaseMaxSpeed    float64 `json:"base_max_speed" yaml:"base_max_speed" env:"BASE_MAX_SPEED"`
	SpeedPerUnit    float64 `json:"speed_per_unit" yaml:"speed_per_unit" env:"SPEED_PER_UNIT"`
	BaseThrust      float64 `json:"base_thrust" yaml:"base_thrust" env:"BASE_THRUST"`
	ThrustPerVCL    float64 `json:"thrust_per_vcl" yaml:"thrust_per_vcl" env:"THRUST_PER_VCL"`
	OvershootMargin float64 `json:"overshoot_margin" yaml:"overshoot_margin" env:"OVERSHOOT_MARGIN"`
	BrakeFactor     float64 `json:"brake_factor" yaml:"brake_factor" env:"BRAKE_FACTOR"`
	Drag            float64 `json:"drag" yaml:"drag" env:"DRAG"`
	DragMitigation  float64 `json:"drag_mitigation" yaml:"drag_mitigation" env:"DRAG_MITIGATION"`
	LateralGrip     float64 `json:"lateral_grip" yaml:"lateral_grip" env:"LATERAL_GRIP"`
	LaneKeeping     float64 `json:"lane_keeping" yaml:"lane_keeping" env:"LANE_KEEPING"`
	SteerGain       float64 `json:"steer_gain" yaml:"steer_gain" env:"STEER_GAIN"`
	SteerDampRatio  float64 `json:"steer_damp_ratio" yaml:"steer_damp_ratio" env:"STEER_DAMP_RATIO"`
	LinearityShare  float64 `json:"linearity_share" yaml:"linearity_share" env:"LINEARITY_SHARE"`
}

// Physics configures the rigid-body world and racer bodies.
type Physics struct {
	Iterations       int     `json:"iterations" yaml:"iterations" env:"ITERATIONS"`
	Baumgarte        float64 `json:"baumgarte" yaml:"baumgarte" env:"BAUMGARTE"`
	Slop             float64 `json:"slop" yaml:"slop" env:"SLOP"`
	RacerRadius      float64 `json:"racer_radius" yaml:"racer_radius" env:"RACER_RADIUS"`
	RacerHalfLength  float64 `json:"racer_half_length" yaml:"racer_half_length" env:"RACER_HALF_LENGTH"`
	RacerMass        float64 `json:"racer_mass" yaml:"racer_mass" env:"RACER_MASS"`
	RacerFriction    float64 `json:"racer_friction" yaml:"racer_friction" env:"RACER_FRICTION"`
	RacerRestitution float64 `json:"racer_restitution" yaml:"racer_restitution" env:"RACER_RESTITUTION"`
	WallFriction     float64 `json:"wall_friction" yaml:"wall_friction" env:"WALL_FRICTION"`
	WallRestitution  float64 `json:"wall_restitution" yaml:"wall_restitution" env:"WALL_RESTITUTION"`
}

// Course holds geometry sampling and race-rule constants.
type Course struct {
	Resolution       int     `json:"resolution" yaml:"resolution" env:"RESOLUTION"`
	StartOffset      float64 `json:"start_offset" yaml:"start_offset" env:"START_OFFSET"`
	FinishEpsilon    float64 `json:"finish_epsilon" yaml:"finish_epsilon" env:"FINISH_EPSILON"`
	ProjectionWindow float64 `json:"projection_window" yaml:"projection_window" env:"PROJECTION_WINDOW"`
	LaneGap          float64 `json:"lane_gap" yaml:"lane_gap" env:"LANE_GAP"`
	LaneMargin       float64 `json:"lane_margin" yaml:"lane_margin" env:"LANE_MARGIN"`
}

// ZoneLengths are relative zone sizes used when a preset lists zone kinds
// without explicit ranges.
type ZoneLengths struct {
	Flow     float64 `json:"flow" yaml:"flow" env:"FLOW"`
	Gradient float64 `json:"gradient" yaml:"gradient" env:"GRADIENT"`
	Viscous  float64 `json:"viscous" yaml:"viscous" env:"VISCOUS"`
}

// DefaultBalance returns the shipped tuning.
func DefaultBalance() Balance {
	return Balance{
		Environment: Environment{FlowSpeed: 1, Viscosity: 1},
		Flow:        FlowZone{AlignmentGain: 30, MaxBoost: 20},
		Gradient: Gradient{
			BaseRate:        0.15,
			SignalScale:     1.5,
			MaxRate:         0.999,
			CheckInterval:   0.35,
			Duration:        1.2,
			VCLFactor:       1.6,
			LinearityFactor: 0.75,
			ChemotaxisBonus: 6,
		},
		Viscous:   ViscousZone{DragScale: 0.35, FlowMitigation: 0.6, MaxPenalty: 0.8},
		Curvature: Curvature{Scale: 25, Mitigation: 0.5, Floor: 0.35, Ceiling: 1.05},
		Control: Control{
			BaseMaxSpeed:    30,
			SpeedPerUnit:    1,
			BaseThrust:      80,
			ThrustPerVCL:    1,
			OvershootMargin: 0.05,
			BrakeFactor:     0.5,
			Drag:            0.15,
			DragMitigation:  0.3,
			LateralGrip:     8,
			LaneKeeping:     1.5,
			SteerGain:       60,
			SteerDampRatio:  1,
			LinearityShare:  0.4,
		},
		Physics: Physics{
			Iterations:       4,
			Baumgarte:        0.8,
			Slop:             0.01,
			RacerRadius:      5,
			RacerHalfLength:  6,
			RacerMass:        1,
			RacerFriction:    0.1,
			RacerRestitution: 0.3,
			WallFriction:     0.4,
			WallRestitution:  0.1,
		},
		Course: Course{
			Resolution:       24,
			StartOffset:      14,
			FinishEpsilon:    1,
			ProjectionWindow: 120,
			LaneGap:          3,
			LaneMargin:       2,
		},
		ZoneLengths: ZoneLengths{Flow: 1, Gradient: 1, Viscous: 1},
	}
}

// Validate rejects values that would make the simulation ill-defined.
func (b *Balance) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"environment.flow_speed must be >= 0", b.Environment.FlowSpeed >= 0},
		{"environment.viscosity must be >= 0", b.Environment.Viscosity >= 0},
		{"flow.max_boost must be >= 0", b.Flow.MaxBoost >= 0},
		{"gradient.max_rate must be in (0,1)", b.Gradient.MaxRate > 0 && b.Gradient.MaxRate < 1},
		{"gradient.base_rate must be in [0,max_rate]", b.Gradient.BaseRate >= 0 && b.Gradient.BaseRate <= b.Gradient.MaxRate},
		{"gradient.check_interval must be > 0", b.Gradient.CheckInterval > 0},
		{"gradient.duration must be > 0", b.Gradient.Duration > 0},
		{"viscous.max_penalty must be in [0,1)", b.Viscous.MaxPenalty >= 0 && b.Viscous.MaxPenalty < 1},
		{"curvature.floor must be > 0 and <= ceiling", b.Curvature.Floor > 0 && b.Curvature.Floor <= b.Curvature.Ceiling},
		{"control.base_max_speed must be > 0", b.Control.BaseMaxSpeed > 0},
		{"control.base_thrust must be > 0", b.Control.BaseThrust > 0},
		{"control.overshoot_margin must be >= 0", b.Control.OvershootMargin >= 0},
		{"control.lateral_grip must be >= 0", b.Control.LateralGrip >= 0},
		{"control.steer_gain must be > 0", b.Control.SteerGain > 0},
		{"control.linearity_share must be in [0,1]", b.Control.LinearityShare >= 0 && b.Control.LinearityShare <= 1},
		{"physics.iterations must be >= 1", b.Physics.Iterations >= 1},
		{"physics.racer_radius must be > 0", b.Physics.RacerRadius > 0},
		{"physics.racer_half_length must be >= 0", b.Physics.RacerHalfLength >= 0},
		{"physics.racer_mass must be > 0", b.Physics.RacerMass > 0},
		{"course.resolution must be >= 1", b.Course.Resolution >= 1},
		{"course.finish_epsilon must be >= 0", b.Course.FinishEpsilon >= 0},
		{"course.projection_window must be >= 0", b.Course.ProjectionWindow >= 0},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidBalance, c.name)
		}
	}
	return nil
}

// LoadBalanceYAML decodes r over the defaults, so a file only needs the keys
// it changes.
func LoadBalanceYAML(r io.Reader) (Balance, error) {
	b := DefaultBalance()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return Balance{}, fmt.Errorf("decode balance: %w", err)
	}
	return b, nil
}

// EnvPrefix namespaces every balance override, e.g. SWIMRACE_GRADIENT_BASE_RATE.
const EnvPrefix = "SWIMRACE_"

// ApplyEnv overlays environment variables onto b. Unset variables keep the
// current value.
func ApplyEnv(b *Balance) error {
	if err := env.ParseWithOptions(b, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
