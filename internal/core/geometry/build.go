package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// minSpeed is the derivative magnitude under which tangent and curvature are
// considered undefined.
const minSpeed = 1e-9

// Sample is one point of the sampled centerline.
type Sample struct {
	Position  mgl64.Vec2
	Tangent   mgl64.Vec2
	Normal    mgl64.Vec2
	Curvature float64 // signed, positive when turning left
	S         float64 // cumulative arc-length
}

// Geometry is the derived, immutable centerline of a Track.
type Geometry struct {
	track       Track
	samples     []Sample
	totalLength float64
}

// Build samples a Catmull-Rom spline through the track's control points,
// resolution samples per segment, and accumulates arc-length.
func Build(track Track, resolution int) (*Geometry, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}
	if resolution < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, resolution)
	}

	// coincident neighbours would give a zero-length segment that the spline
	// loops backwards through
	pts := distinctPoints(track.Points, track.Closed)
	n := len(pts)
	segments := n - 1
	if track.Closed {
		segments = n
	}

	point := func(i int) mgl64.Vec2 {
		if track.Closed {
			return pts[((i%n)+n)%n]
		}
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		return pts[i]
	}

	samples := make([]Sample, 0, segments*resolution+1)
	emit := func(c cubic, t float64) {
		pos, d1, d2 := c.eval(t)
		samples = append(samples, newSample(pos, d1, d2))
	}

	var last cubic
	for seg := 0; seg < segments; seg++ {
		last = newCubic(point(seg-1), point(seg), point(seg+1), point(seg+2))
		for j := 0; j < resolution; j++ {
			emit(last, float64(j)/float64(resolution))
		}
	}
	emit(last, 1)

	fillDegenerateTangents(samples)

	s := 0.0
	for i := range samples {
		if i > 0 {
			s += samples[i].Position.Sub(samples[i-1].Position).Len()
		}
		samples[i].S = s
	}

	copied := track
	copied.Points = append([]mgl64.Vec2(nil), track.Points...)
	copied.Zones = append([]Zone(nil), track.Zones...)

	return &Geometry{track: copied, samples: samples, totalLength: s}, nil
}

// cubic holds the polynomial coefficients of one Catmull-Rom segment:
// p(t) = a + b t + c t^2 + d t^3.
type cubic struct {
	a, b, c, d mgl64.Vec2
}

func newCubic(p0, p1, p2, p3 mgl64.Vec2) cubic {
	return cubic{
		a: p1,
		b: p2.Sub(p0).Mul(0.5),
		c: p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(0.5),
		d: p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(0.5),
	}
}

func (k cubic) eval(t float64) (pos, d1, d2 mgl64.Vec2) {
	t2, t3 := t*t, t*t*t
	pos = k.a.Add(k.b.Mul(t)).Add(k.c.Mul(t2)).Add(k.d.Mul(t3))
	d1 = k.b.Add(k.c.Mul(2 * t)).Add(k.d.Mul(3 * t2))
	d2 = k.c.Mul(2).Add(k.d.Mul(6 * t))
	return pos, d1, d2
}

func newSample(pos, d1, d2 mgl64.Vec2) Sample {
	speed := d1.Len()
	if speed < minSpeed {
		return Sample{Position: pos}
	}
	tangent := d1.Mul(1 / speed)
	return Sample{
		Position:  pos,
		Tangent:   tangent,
		Normal:    perp(tangent),
		Curvature: cross(d1, d2) / (speed * speed * speed),
	}
}

// fillDegenerateTangents gives samples with an undefined derivative the
// direction towards their neighbours.
func fillDegenerateTangents(samples []Sample) {
	for i := range samples {
		if samples[i].Tangent != (mgl64.Vec2{}) {
			continue
		}
		var dir mgl64.Vec2
		switch {
		case i+1 < len(samples):
			dir = samples[i+1].Position.Sub(samples[i].Position)
		case i > 0:
			dir = samples[i].Position.Sub(samples[i-1].Position)
		}
		if l := dir.Len(); l > minSpeed {
			dir = dir.Mul(1 / l)
		} else if i > 0 {
			dir = samples[i-1].Tangent
		}
		if dir == (mgl64.Vec2{}) {
			dir = mgl64.Vec2{1, 0}
		}
		samples[i].Tangent = dir
		samples[i].Normal = perp(dir)
	}
}

func perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

func cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// Angle returns the heading of a direction vector in radians.
func Angle(v mgl64.Vec2) float64 {
	return math.Atan2(v[1], v[0])
}
