package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Bounds returns the axis-aligned box around the centerline samples.
func (g *Geometry) Bounds() (lo, hi mgl64.Vec2) {
	lo = mgl64.Vec2{math.Inf(1), math.Inf(1)}
	hi = mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	for _, s := range g.samples {
		lo[0] = math.Min(lo[0], s.Position[0])
		lo[1] = math.Min(lo[1], s.Position[1])
		hi[0] = math.Max(hi[0], s.Position[0])
		hi[1] = math.Max(hi[1], s.Position[1])
	}
	return lo, hi
}

// Offset returns the centerline shifted by d along each sample normal.
// Offset(+HalfWidth()) and Offset(-HalfWidth()) are the track walls.
func (g *Geometry) Offset(d float64) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, len(g.samples))
	for i, s := range g.samples {
		out[i] = s.Position.Add(s.Normal.Mul(d))
	}
	return out
}

// PathString renders the centerline as an SVG path ("M x y L x y ... [Z]").
func (g *Geometry) PathString(precision int) string {
	return PolylinePath(g.Offset(0), precision, g.track.Closed)
}

// PolylinePath renders any polyline as an SVG path.
func PolylinePath(pts []mgl64.Vec2, precision int, closed bool) string {
	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(strconv.FormatFloat(p[0], 'f', precision, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p[1], 'f', precision, 64))
	}
	if closed && len(pts) > 0 {
		b.WriteString(" Z")
	}
	return b.String()
}
