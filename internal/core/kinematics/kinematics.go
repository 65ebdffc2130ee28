// Package kinematics holds the pure formulas that turn racer stats and the
// current zone into forward speeds. Nothing here keeps state between calls
// except through the arguments it is handed.
package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/config"
)

// Stats are the four pre-normalized abilities of a racer, each in [0,100].
type Stats struct {
	Motility          float64 `json:"motility" yaml:"motility" msgpack:"motility"`
	Linearity         float64 `json:"linearity" yaml:"linearity" msgpack:"linearity"`
	FlowAffinity      float64 `json:"flow_affinity" yaml:"flow_affinity" msgpack:"flow_affinity"`
	SignalSensitivity float64 `json:"signal_sensitivity" yaml:"signal_sensitivity" msgpack:"signal_sensitivity"`
}

// Base is the zone-independent motion profile of a racer.
type Base struct {
	VCL       float64 // curvilinear velocity
	Linearity float64
	VSL       float64 // straight-line velocity, VCL * Linearity
}

const (
	minLinearity = 0.2
	maxLinearity = 0.95
)

// Eff maps a 0-100 stat onto an effective capability with diminishing returns.
func Eff(stat float64) float64 {
	return math.Sqrt(math.Max(0, stat)) * 10
}

// BaseKinematics derives VCL, linearity and VSL from stats.
func BaseKinematics(s Stats) Base {
	vcl := Eff(s.Motility)
	lin := mgl64.Clamp(Eff(s.Linearity)/100, minLinearity, maxLinearity)
	return Base{VCL: vcl, Linearity: lin, VSL: vcl * lin}
}

// CurvaturePenalty is the speed multiplier for a bend of the given curvature.
// Flow affinity and linearity soften the penalty; the result stays within
// [Floor, Ceiling].
func CurvaturePenalty(curvature float64, s Stats, c config.Curvature) float64 {
	lin := mgl64.Clamp(Eff(s.Linearity)/100, minLinearity, maxLinearity)
	skill := 0.5*frac(s.FlowAffinity) + 0.5*lin
	k := math.Abs(curvature) * c.Scale
	mult := c.Ceiling - k*(1-c.Mitigation*skill)
	return mgl64.Clamp(mult, c.Floor, c.Ceiling)
}

// frac turns a 0-100 stat into [0,1].
func frac(stat float64) float64 {
	return mgl64.Clamp(stat/100, 0, 1)
}
