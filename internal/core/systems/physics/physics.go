package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CapsuleInertia approximates a capsule's moment of inertia about its centre
// as a solid box of the same outer extents.
func CapsuleInertia(mass, halfLength, radius float64) float64 {
	w := 2 * (halfLength + radius)
	h := 2 * radius
	return mass * (w*w + h*h) / 12
}

// NormalizeAngle wraps a into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Direction returns the unit vector at angle a.
func Direction(a float64) mgl64.Vec2 {
	return mgl64.Vec2{math.Cos(a), math.Sin(a)}
}

// Cross2 is the z component of a × b.
func Cross2(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossSV is ω × r for a scalar angular velocity.
func CrossSV(w float64, r mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-w * r[1], w * r[0]}
}

// Finite reports whether every component is a real number.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
