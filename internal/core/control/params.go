package control

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/kinematics"
)

// Params are the per-racer control constants, derived once from stats.
type Params struct {
	Thrust             float64 // forward acceleration limit
	SteerGain          float64
	SteerDamp          float64
	LateralGrip        float64
	Drag               float64
	BurstCheckInterval float64 // cooldown between hyperburst rolls
}

// Derive computes Params for a racer. Linearity shares into steering and grip,
// flow affinity mitigates drag, motility drives thrust.
func Derive(s kinematics.Stats, b *config.Balance) Params {
	base := kinematics.BaseKinematics(s)
	c := b.Control

	handling := 1 - c.LinearityShare + c.LinearityShare*base.Linearity
	gain := c.SteerGain * handling
	flow := mgl64.Clamp(s.FlowAffinity/100, 0, 1)

	return Params{
		Thrust:             c.BaseThrust + c.ThrustPerVCL*base.VCL,
		SteerGain:          gain,
		SteerDamp:          2 * math.Sqrt(gain) * c.SteerDampRatio,
		LateralGrip:        c.LateralGrip * handling,
		Drag:               c.Drag * (1 - c.DragMitigation*flow),
		BurstCheckInterval: b.Gradient.CheckInterval,
	}
}
