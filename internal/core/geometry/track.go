// Package geometry turns a track's control points into an arc-length indexed
// centerline and answers position, tangent, curvature and zone queries along it.
package geometry

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrTooFewPoints      = errors.New("track needs at least 2 control points")
	ErrInvalidResolution = errors.New("resolution must be at least 1")
)

// ZoneKind names the environment of a track stretch.
type ZoneKind string

const (
	ZoneFlow     ZoneKind = "flow"
	ZoneGradient ZoneKind = "gradient"
	ZoneViscous  ZoneKind = "viscous"
)

// Valid reports whether k is one of the known zone kinds.
func (k ZoneKind) Valid() bool {
	switch k {
	case ZoneFlow, ZoneGradient, ZoneViscous:
		return true
	}
	return false
}

// Zone covers the progress range [Start, End).
type Zone struct {
	Kind  ZoneKind `json:"kind" yaml:"kind" msgpack:"kind"`
	Start float64  `json:"start" yaml:"start" msgpack:"start"`
	End   float64  `json:"end" yaml:"end" msgpack:"end"`
}

// Contains reports whether progress p falls inside the zone.
func (z Zone) Contains(p float64) bool {
	return z.Start <= p && p < z.End
}

// Track is the immutable input description of a course.
type Track struct {
	Points []mgl64.Vec2 `json:"points" yaml:"points"`
	Width  float64      `json:"width" yaml:"width"`
	Closed bool         `json:"closed" yaml:"closed"`
	Zones  []Zone       `json:"zones" yaml:"zones"`
}

// minPointGap is the distance under which two control points are the same
// point.
const minPointGap = 1e-9

// Validate checks the only structural requirement the core relies on: at
// least 2 distinct control points, 3 on a closed track.
func (t Track) Validate() error {
	need := 2
	if t.Closed {
		need = 3
	}
	if n := len(distinctPoints(t.Points, t.Closed)); n < need {
		return fmt.Errorf("%w: got %d distinct, need %d", ErrTooFewPoints, n, need)
	}
	return nil
}

// distinctPoints drops control points that coincide with their predecessor.
// On a closed track a last point repeating the first is dropped too, since
// the closing segment already joins them.
func distinctPoints(pts []mgl64.Vec2, closed bool) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && p.Sub(out[len(out)-1]).Len() < minPointGap {
			continue
		}
		out = append(out, p)
	}
	for closed && len(out) > 1 && out[len(out)-1].Sub(out[0]).Len() < minPointGap {
		out = out[:len(out)-1]
	}
	return out
}

// ZonesFromLengths lays out contiguous zones in order, sized proportionally to
// lengths[kind]. Kinds with a non-positive length get an equal share.
func ZonesFromLengths(kinds []ZoneKind, lengths map[ZoneKind]float64) []Zone {
	if len(kinds) == 0 {
		return nil
	}
	weights := make([]float64, len(kinds))
	total := 0.0
	for i, k := range kinds {
		w := lengths[k]
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	zones := make([]Zone, len(kinds))
	start := 0.0
	for i, k := range kinds {
		end := start + weights[i]/total
		if i == len(kinds)-1 {
			end = 1
		}
		zones[i] = Zone{Kind: k, Start: start, End: end}
		start = end
	}
	return zones
}
