package geometry

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection is the result of anchoring a free point onto the centerline.
type Projection struct {
	S       float64    // arc-length of the foot point
	Index   int        // nearest sample index
	Point   mgl64.Vec2 // foot point on the sampled polyline
	Lateral float64    // signed offset along the normal at the foot point
}

func (g *Geometry) Track() Track         { return g.track }
func (g *Geometry) TotalLength() float64 { return g.totalLength }
func (g *Geometry) Len() int             { return len(g.samples) }
func (g *Geometry) Sample(i int) Sample  { return g.samples[i] }
func (g *Geometry) Width() float64       { return g.track.Width }
func (g *Geometry) HalfWidth() float64   { return g.track.Width / 2 }
func (g *Geometry) Closed() bool         { return g.track.Closed }
func (g *Geometry) Samples() []Sample    { return append([]Sample(nil), g.samples...) }

// Progress converts an arc-length into a fraction of the course.
func (g *Geometry) Progress(s float64) float64 {
	if g.totalLength <= 0 {
		return 0
	}
	return s / g.totalLength
}

// SampleAt interpolates the centerline at arc-length distance, clamped to
// [0, TotalLength].
func (g *Geometry) SampleAt(distance float64) Sample {
	last := len(g.samples) - 1
	if distance <= 0 || math.IsNaN(distance) {
		return g.samples[0]
	}
	if distance >= g.totalLength {
		return g.samples[last]
	}

	hi := sort.Search(len(g.samples), func(i int) bool { return g.samples[i].S > distance })
	if hi > last {
		return g.samples[last]
	}
	lo := hi - 1
	a, b := g.samples[lo], g.samples[hi]
	span := b.S - a.S
	if span <= 0 {
		return a
	}
	t := (distance - a.S) / span

	tangent := lerp(a.Tangent, b.Tangent, t)
	if l := tangent.Len(); l > minSpeed {
		tangent = tangent.Mul(1 / l)
	} else {
		tangent = a.Tangent
	}
	return Sample{
		Position:  lerp(a.Position, b.Position, t),
		Tangent:   tangent,
		Normal:    perp(tangent),
		Curvature: a.Curvature + (b.Curvature-a.Curvature)*t,
		S:         distance,
	}
}

// ZoneForProgress returns the kind of the first zone whose [start, end)
// contains progress, clamped to [0,1). The last zone is the fallback; a track
// without zones is flow everywhere.
func (g *Geometry) ZoneForProgress(progress float64) ZoneKind {
	return ZoneFor(g.track.Zones, progress)
}

// ZoneFor is ZoneForProgress over an explicit zone list.
func ZoneFor(zones []Zone, progress float64) ZoneKind {
	if len(zones) == 0 {
		return ZoneFlow
	}
	if progress < 0 || math.IsNaN(progress) {
		progress = 0
	}
	if progress >= 1 {
		progress = math.Nextafter(1, 0)
	}
	for _, z := range zones {
		if z.Contains(progress) {
			return z.Kind
		}
	}
	return zones[len(zones)-1].Kind
}

// ProjectPoint finds the nearest sample by a full linear scan and refines the
// foot point against its adjacent polyline segments.
func (g *Geometry) ProjectPoint(p mgl64.Vec2) Projection {
	return g.project(p, 0, len(g.samples)-1)
}

// ProjectPointNear restricts the scan to samples with S in
// [hintS-window, hintS+window]. Racers move a bounded distance per tick, so
// this keeps per-tick projection cheap and stops a closed loop's finish from
// aliasing onto its start.
func (g *Geometry) ProjectPointNear(p mgl64.Vec2, hintS, window float64) Projection {
	if window <= 0 {
		return g.ProjectPoint(p)
	}
	lo := sort.Search(len(g.samples), func(i int) bool { return g.samples[i].S >= hintS-window })
	hi := sort.Search(len(g.samples), func(i int) bool { return g.samples[i].S > hintS+window }) - 1
	last := len(g.samples) - 1
	if lo > last {
		lo = last
	}
	if hi < lo {
		hi = lo
	}
	return g.project(p, lo, hi)
}

func (g *Geometry) project(p mgl64.Vec2, lo, hi int) Projection {
	best, bestD := lo, math.Inf(1)
	for i := lo; i <= hi; i++ {
		d := g.samples[i].Position.Sub(p)
		if dd := d.Dot(d); dd < bestD {
			best, bestD = i, dd
		}
	}

	proj := Projection{Index: best, S: g.samples[best].S, Point: g.samples[best].Position}
	bestD = math.Inf(1)
	for _, seg := range [2]int{best - 1, best} {
		if seg < 0 || seg+1 >= len(g.samples) {
			continue
		}
		a, b := g.samples[seg], g.samples[seg+1]
		ab := b.Position.Sub(a.Position)
		l2 := ab.Dot(ab)
		t := 0.0
		if l2 > 0 {
			t = mgl64.Clamp(p.Sub(a.Position).Dot(ab)/l2, 0, 1)
		}
		foot := a.Position.Add(ab.Mul(t))
		d := foot.Sub(p)
		if dd := d.Dot(d); dd < bestD {
			bestD = dd
			proj.Point = foot
			proj.S = a.S + (b.S-a.S)*t
		}
	}
	proj.Lateral = p.Sub(proj.Point).Dot(g.samples[best].Normal)
	return proj
}

func lerp(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}
