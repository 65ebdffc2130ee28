package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/config"
	"github.com/zeusync/swimrace/internal/core/geometry"
	"github.com/zeusync/swimrace/internal/core/kinematics"
	"github.com/zeusync/swimrace/internal/core/race"
)

// TrackFromPreset converts a catalog preset into a geometry.Track. Explicit
// zone ranges win; otherwise zone kinds are laid out from the balance's
// relative zone lengths.
func TrackFromPreset(p config.TrackPreset, lengths config.ZoneLengths) geometry.Track {
	pts := make([]mgl64.Vec2, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = mgl64.Vec2{pt[0], pt[1]}
	}

	var zones []geometry.Zone
	switch {
	case len(p.Zones) > 0:
		zones = make([]geometry.Zone, len(p.Zones))
		for i, z := range p.Zones {
			zones[i] = geometry.Zone{Kind: geometry.ZoneKind(z.Kind), Start: z.Start, End: z.End}
		}
	case len(p.ZoneKinds) > 0:
		kinds := make([]geometry.ZoneKind, len(p.ZoneKinds))
		for i, k := range p.ZoneKinds {
			kinds[i] = geometry.ZoneKind(k)
		}
		zones = geometry.ZonesFromLengths(kinds, map[geometry.ZoneKind]float64{
			geometry.ZoneFlow:     lengths.Flow,
			geometry.ZoneGradient: lengths.Gradient,
			geometry.ZoneViscous:  lengths.Viscous,
		})
	}

	return geometry.Track{Points: pts, Width: p.Width, Closed: p.Closed, Zones: zones}
}

// RosterFromPresets converts catalog racers into race racers.
func RosterFromPresets(presets []config.RacerPreset) []race.Racer {
	out := make([]race.Racer, len(presets))
	for i, p := range presets {
		out[i] = race.Racer{
			ID:   p.ID,
			Name: p.Name,
			Tint: p.Tint,
			Stats: kinematics.Stats{
				Motility:          p.Stats.Motility,
				Linearity:         p.Stats.Linearity,
				FlowAffinity:      p.Stats.FlowAffinity,
				SignalSensitivity: p.Stats.SignalSensitivity,
			},
		}
	}
	return out
}
