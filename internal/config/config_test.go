package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/swimrace/internal/core/observability/log"
)

func TestDefaultBalanceIsValid(t *testing.T) {
	b := DefaultBalance()
	require.NoError(t, b.Validate())
}

func TestValidateRejects(t *testing.T) {
	b := DefaultBalance()
	b.Gradient.BaseRate = 1
	assert.ErrorIs(t, b.Validate(), ErrInvalidBalance)

	for _, maxRate := range []float64{0, 1} {
		b = DefaultBalance()
		b.Gradient.MaxRate = maxRate
		b.Gradient.BaseRate = 0
		err := b.Validate()
		require.ErrorIs(t, err, ErrInvalidBalance)
		assert.Contains(t, err.Error(), "gradient.max_rate")
	}

	b = DefaultBalance()
	b.Gradient.MaxRate = 0.3
	b.Gradient.BaseRate = 0.4
	assert.ErrorIs(t, b.Validate(), ErrInvalidBalance)

	b = DefaultBalance()
	b.Physics.Iterations = 0
	err := b.Validate()
	require.ErrorIs(t, err, ErrInvalidBalance)
	assert.Contains(t, err.Error(), "physics.iterations")
}

func TestLoadBalanceYAMLOverridesDefaults(t *testing.T) {
	src := `
environment:
  viscosity: 2.5
gradient:
  base_rate: 0.4
course:
  resolution: 12
`
	b, err := LoadBalanceYAML(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2.5, b.Environment.Viscosity)
	assert.Equal(t, 0.4, b.Gradient.BaseRate)
	assert.Equal(t, 12, b.Course.Resolution)

	def := DefaultBalance()
	assert.Equal(t, def.Environment.FlowSpeed, b.Environment.FlowSpeed)
	assert.Equal(t, def.Control, b.Control)
}

func TestLoadBalanceYAMLEmpty(t *testing.T) {
	b, err := LoadBalanceYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultBalance(), b)
}

func TestLoadBalanceYAMLMalformed(t *testing.T) {
	_, err := LoadBalanceYAML(strings.NewReader("gradient: [1, 2"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SWIMRACE_GRADIENT_BASE_RATE", "0.25")
	t.Setenv("SWIMRACE_PHYSICS_ITERATIONS", "6")
	t.Setenv("SWIMRACE_ENV_FLOW_SPEED", "1.75")

	b := DefaultBalance()
	require.NoError(t, ApplyEnv(&b))
	assert.Equal(t, 0.25, b.Gradient.BaseRate)
	assert.Equal(t, 6, b.Physics.Iterations)
	assert.Equal(t, 1.75, b.Environment.FlowSpeed)
	assert.Equal(t, DefaultBalance().Viscous, b.Viscous)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("SWIMRACE_PHYSICS_ITERATIONS", "many")
	b := DefaultBalance()
	assert.Error(t, ApplyEnv(&b))
}

func TestProvideBalanceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "balance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flow:\n  max_boost: 7\n"), 0o600))

	b, err := ProvideBalance(Settings{BalancePath: path})
	require.NoError(t, err)
	assert.Equal(t, 7.0, b.Flow.MaxBoost)

	_, err = ProvideBalance(Settings{BalancePath: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, []string{"meander", "oval", "sanity"}, c.TrackNames())

	sanity, err := c.Track("sanity")
	require.NoError(t, err)
	assert.Len(t, sanity.Points, 10)
	require.Len(t, sanity.Zones, 2)
	assert.Equal(t, "flow", sanity.Zones[0].Kind)
	assert.Equal(t, "viscous", sanity.Zones[1].Kind)

	oval, err := c.Track("oval")
	require.NoError(t, err)
	assert.True(t, oval.Closed)
	assert.Equal(t, []string{"gradient", "flow", "viscous"}, oval.ZoneKinds)

	roster, err := c.Roster("default")
	require.NoError(t, err)
	assert.Len(t, roster, 4)
	assert.Equal(t, "r1", roster[0].ID)
	assert.Equal(t, 72.0, roster[0].Stats.Motility)

	_, err = c.Track("nope")
	assert.ErrorIs(t, err, ErrUnknownTrack)
	_, err = c.Roster("nope")
	assert.ErrorIs(t, err, ErrUnknownRoster)
}

func TestLoadCatalogRejectsBadZone(t *testing.T) {
	src := `
tracks:
  t:
    width: 10
    points: [[0, 0], [1, 0]]
    zones:
      - {kind: lava, start: 0, end: 1}
`
	_, err := LoadCatalogYAML(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrBadZone)
}

func TestProvideLogLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, ProvideLogLevel(Settings{LogLevel: "debug"}))
	assert.Equal(t, log.LevelInfo, ProvideLogLevel(Settings{}))
}
