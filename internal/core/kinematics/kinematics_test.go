package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/geometry"
)

type fakeBurst struct {
	bursting bool
	due      bool
	checks   int
	started  float64
}

func (b *fakeBurst) Bursting() bool { return b.bursting }

func (b *fakeBurst) CheckDue(float64) bool {
	b.checks++
	return b.due
}

func (b *fakeBurst) StartBurst(d float64) {
	b.bursting = true
	b.started = d
}

type fixedSource struct {
	v     float64
	draws int
}

func (s *fixedSource) Float64() float64 {
	s.draws++
	return s.v
}

func midStats() Stats {
	return Stats{Motility: 50, Linearity: 50, FlowAffinity: 50, SignalSensitivity: 50}
}

func input(s Stats, b *config.Balance) Input {
	return Input{Stats: s, Base: BaseKinematics(s), Balance: b, Alignment: 1}
}

func TestEff(t *testing.T) {
	assert.Equal(t, 0.0, Eff(-5))
	assert.Equal(t, 0.0, Eff(0))
	assert.Equal(t, 100.0, Eff(100))
	assert.InDelta(t, 70.7106781, Eff(50), 1e-6)
	assert.Less(t, Eff(50), Eff(51))
}

func TestBaseKinematicsClampsLinearity(t *testing.T) {
	b := BaseKinematics(Stats{Motility: 100, Linearity: 0})
	assert.Equal(t, 100.0, b.VCL)
	assert.Equal(t, 0.2, b.Linearity)
	assert.InDelta(t, 20, b.VSL, 1e-12)

	b = BaseKinematics(Stats{Motility: 100, Linearity: 100})
	assert.Equal(t, 0.95, b.Linearity)
	assert.InDelta(t, 95, b.VSL, 1e-12)
}

func TestCurvaturePenaltyBounds(t *testing.T) {
	c := config.DefaultBalance().Curvature
	for _, curv := range []float64{0, 0.001, -0.01, 0.05, 1, 100} {
		for _, s := range []Stats{{}, midStats(), {Linearity: 100, FlowAffinity: 100}} {
			p := CurvaturePenalty(curv, s, c)
			assert.GreaterOrEqual(t, p, 0.35)
			assert.LessOrEqual(t, p, 1.05)
		}
	}
	assert.Equal(t, 1.05, CurvaturePenalty(0, midStats(), c))
	assert.Equal(t, 0.35, CurvaturePenalty(100, midStats(), c))
}

func TestCurvaturePenaltyMitigation(t *testing.T) {
	c := config.DefaultBalance().Curvature
	novice := CurvaturePenalty(0.01, Stats{}, c)
	expert := CurvaturePenalty(0.01, Stats{Linearity: 100, FlowAffinity: 100}, c)
	assert.Greater(t, expert, novice)
	assert.Equal(t, CurvaturePenalty(0.01, midStats(), c), CurvaturePenalty(-0.01, midStats(), c))
}

func TestFlowBoostCapped(t *testing.T) {
	b := config.DefaultBalance()
	in := input(Stats{Motility: 50, Linearity: 50, FlowAffinity: 100}, &b)

	assert.InDelta(t, in.Base.VSL+b.Flow.MaxBoost, Flow(in), 1e-9)

	in.Alignment = 0
	assert.InDelta(t, in.Base.VSL, Flow(in), 1e-9)

	in.Alignment = 0.5
	b.Flow.MaxBoost = 1000
	assert.InDelta(t, in.Base.VSL+b.Flow.AlignmentGain*0.5, Flow(in), 1e-9)
}

func TestViscousMitigatedByFlowAffinity(t *testing.T) {
	b := config.DefaultBalance()
	low := Viscous(input(Stats{Motility: 50, Linearity: 50, FlowAffinity: 0}, &b))
	high := Viscous(input(Stats{Motility: 50, Linearity: 50, FlowAffinity: 100}, &b))
	base := BaseKinematics(Stats{Motility: 50, Linearity: 50}).VSL

	assert.Less(t, low, high)
	assert.Less(t, high, base)
	assert.InDelta(t, base*(1-0.35), low, 1e-9)

	b.Environment.Viscosity = 100
	assert.InDelta(t, base*(1-b.Viscous.MaxPenalty), Viscous(input(Stats{Motility: 50, Linearity: 50}, &b)), 1e-9)
}

func TestGradientStartsBurstOnlyWhenDue(t *testing.T) {
	b := config.DefaultBalance()
	in := input(midStats(), &b)

	notDue := &fakeBurst{}
	src := &fixedSource{v: 0}
	calm := Gradient(in, notDue, 1.0/120, src)
	assert.False(t, notDue.bursting)
	assert.Equal(t, 0, src.draws, "no draw without a due check")

	due := &fakeBurst{due: true}
	boosted := Gradient(in, due, 1.0/120, src)
	assert.True(t, due.bursting)
	assert.Equal(t, b.Gradient.Duration, due.started)
	assert.Equal(t, 1, src.draws)
	assert.Greater(t, boosted, calm)

	want := in.Base.VCL*b.Gradient.VCLFactor*in.Base.Linearity*b.Gradient.LinearityFactor +
		b.Gradient.ChemotaxisBonus*0.5
	assert.InDelta(t, want, boosted, 1e-9)

	miss := &fakeBurst{due: true}
	Gradient(in, miss, 1.0/120, &fixedSource{v: 0.999})
	assert.False(t, miss.bursting)

	active := &fakeBurst{bursting: true, due: true}
	src = &fixedSource{v: 0}
	Gradient(in, active, 1.0/120, src)
	assert.Equal(t, 0, active.checks, "bursting racers skip the roll")
	assert.Equal(t, 0, src.draws)
}

func TestZoneSpeedDispatch(t *testing.T) {
	b := config.DefaultBalance()
	in := input(midStats(), &b)
	burst := &fakeBurst{}
	src := &fixedSource{v: 0.5}

	assert.Equal(t, Flow(in), ZoneSpeed(geometry.ZoneFlow, in, burst, 0.01, src))
	assert.Equal(t, Viscous(in), ZoneSpeed(geometry.ZoneViscous, in, burst, 0.01, src))
	assert.Equal(t, Gradient(in, burst, 0.01, src), ZoneSpeed(geometry.ZoneGradient, in, burst, 0.01, src))
	assert.Equal(t, Flow(in), ZoneSpeed("unknown", in, burst, 0.01, src))
}

func TestBurstChance(t *testing.T) {
	assert.Equal(t, 0.0, BurstChance(0, 1))
	assert.Equal(t, 0.0, BurstChance(0.5, 0))
	assert.InDelta(t, 0.5, BurstChance(0.5, 1), 1e-12)
	assert.InDelta(t, 0.75, BurstChance(0.5, 2), 1e-12)
	assert.InDelta(t, 1-math.Pow(0.85, 0.35), BurstChance(0.15, 0.35), 1e-12)

	g := config.DefaultBalance().Gradient
	assert.Equal(t, g.BaseRate, BurstRate(Stats{}, g))
	assert.InDelta(t, g.BaseRate*(1+g.SignalScale), BurstRate(Stats{SignalSensitivity: 100}, g), 1e-12)
	g.BaseRate = 0.9
	assert.Equal(t, g.MaxRate, BurstRate(Stats{SignalSensitivity: 100}, g))
	g.MaxRate = 0.5
	assert.Equal(t, 0.5, BurstRate(Stats{SignalSensitivity: 100}, g))
}

func TestRandDeterministicAndInRange(t *testing.T) {
	a, b := NewRand(133742), NewRand(133742)
	for i := 0; i < 10000; i++ {
		x, y := a.Float64(), b.Float64()
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0.0)
		require.Less(t, x, 1.0)
	}
	assert.Equal(t, uint64(10000), a.Draws())

	c := NewRand(133743)
	assert.NotEqual(t, NewRand(133742).Float64(), c.Float64())
}

func TestRandRoughlyUniform(t *testing.T) {
	r := NewRand(7)
	var buckets [10]int
	const n = 100000
	for i := 0; i < n; i++ {
		buckets[int(r.Float64()*10)]++
	}
	for _, count := range buckets {
		assert.InDelta(t, n/10, count, n/100)
	}
}
