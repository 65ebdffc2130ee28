package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/geometry"
)

// Input is what every zone formula sees.
type Input struct {
	Stats   Stats
	Base    Base
	Balance *config.Balance
	// Alignment is the cosine between the racer's velocity and the track
	// tangent, clamped to [0,1].
	Alignment float64
}

// BurstState is the per-racer zone-local state the gradient formula drives.
type BurstState interface {
	Bursting() bool
	// CheckDue advances the throttle clock by dt and reports whether a burst
	// roll is due now.
	CheckDue(dt float64) bool
	StartBurst(duration float64)
}

// Source is a stream of uniform draws in [0,1).
type Source interface {
	Float64() float64
}

// Flow rewards racers that swim with the current.
func Flow(in Input) float64 {
	f := in.Balance.Flow
	boost := f.AlignmentGain * mgl64.Clamp(in.Alignment, 0, 1) * frac(in.Stats.FlowAffinity) * in.Balance.Environment.FlowSpeed
	return in.Base.VSL + math.Min(boost, f.MaxBoost)
}

// Gradient may start a hyperburst and adds the chemotaxis bonus. The random
// stream is consulted at most once per check interval.
func Gradient(in Input, burst BurstState, dt float64, rng Source) float64 {
	g := in.Balance.Gradient
	if !burst.Bursting() && burst.CheckDue(dt) {
		chance := BurstChance(BurstRate(in.Stats, g), g.CheckInterval)
		if rng.Float64() < chance {
			burst.StartBurst(g.Duration)
		}
	}

	vcl, lin := in.Base.VCL, in.Base.Linearity
	if burst.Bursting() {
		vcl *= g.VCLFactor
		lin *= g.LinearityFactor
	}
	return vcl*lin + g.ChemotaxisBonus*frac(in.Stats.SignalSensitivity)
}

// Viscous applies the medium's drag, mitigated by flow affinity.
func Viscous(in Input) float64 {
	v := in.Balance.Viscous
	penalty := in.Balance.Environment.Viscosity * v.DragScale * (1 - v.FlowMitigation*frac(in.Stats.FlowAffinity))
	penalty = mgl64.Clamp(penalty, 0, v.MaxPenalty)
	return in.Base.VSL * (1 - penalty)
}

// ZoneSpeed dispatches to the formula for kind.
func ZoneSpeed(kind geometry.ZoneKind, in Input, burst BurstState, dt float64, rng Source) float64 {
	switch kind {
	case geometry.ZoneGradient:
		return Gradient(in, burst, dt, rng)
	case geometry.ZoneViscous:
		return Viscous(in)
	default:
		return Flow(in)
	}
}

// BurstRate is the per-second burst rate, scaled up by signal sensitivity and
// capped at the configured MaxRate.
func BurstRate(s Stats, g config.Gradient) float64 {
	rate := g.BaseRate * (1 + g.SignalScale*frac(s.SignalSensitivity))
	return mgl64.Clamp(rate, 0, g.MaxRate)
}

// BurstChance converts a per-second rate into the probability of at least one
// event over interval seconds: 1-(1-rate)^interval.
func BurstChance(rate, interval float64) float64 {
	if rate <= 0 || interval <= 0 {
		return 0
	}
	return 1 - math.Pow(1-rate, interval)
}
