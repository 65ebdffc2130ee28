package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/core/systems/physics"
)

// collide detects and resolves a single contact between a (dynamic) and b.
func (w *World) collide(a, b *body) {
	pa, qa := a.segment()
	pb, qb := b.segment()
	if !boundsOverlap(pa, qa, a.radius, pb, qb, b.radius) {
		return
	}

	ca, cb := closestPoints(pa, qa, pb, qb)
	delta := ca.Sub(cb)
	dist := delta.Len()
	reach := a.radius + b.radius
	if dist >= reach {
		return
	}

	var n mgl64.Vec2
	if dist > eps {
		n = delta.Mul(1 / dist)
	} else {
		n = fallbackNormal(pb, qb, a.pos.Sub(cb))
	}
	penetration := reach - dist

	surfaceA := ca.Sub(n.Mul(a.radius))
	surfaceB := cb.Add(n.Mul(b.radius))
	contact := surfaceA.Add(surfaceB).Mul(0.5)
	ra := contact.Sub(a.pos)
	rb := contact.Sub(b.pos)

	invMass := a.invMass + b.invMass
	if invMass <= 0 {
		return
	}

	if corr := penetration - w.cfg.Slop; corr > 0 {
		k := corr * w.cfg.Baumgarte / invMass
		a.pos = a.pos.Add(n.Mul(k * a.invMass))
		b.pos = b.pos.Sub(n.Mul(k * b.invMass))
	}

	rel := relativeVelocity(a, b, ra, rb)
	vn := rel.Dot(n)
	if vn >= 0 {
		return
	}

	ran := physics.Cross2(ra, n)
	rbn := physics.Cross2(rb, n)
	kn := invMass + ran*ran*a.invInertia + rbn*rbn*b.invInertia
	e := math.Max(a.mat.Restitution, b.mat.Restitution)
	jn := -(1 + e) * vn / kn
	applyImpulse(a, b, n.Mul(jn), ra, rb)

	rel = relativeVelocity(a, b, ra, rb)
	tangent := rel.Sub(n.Mul(rel.Dot(n)))
	tl := tangent.Len()
	if tl <= eps {
		return
	}
	tangent = tangent.Mul(1 / tl)
	vt := rel.Dot(tangent)
	rat := physics.Cross2(ra, tangent)
	rbt := physics.Cross2(rb, tangent)
	kt := invMass + rat*rat*a.invInertia + rbt*rbt*b.invInertia
	mu := math.Sqrt(a.mat.Friction * b.mat.Friction)
	jt := mgl64.Clamp(-vt/kt, -mu*jn, mu*jn)
	applyImpulse(a, b, tangent.Mul(jt), ra, rb)
}

func relativeVelocity(a, b *body, ra, rb mgl64.Vec2) mgl64.Vec2 {
	va := a.vel.Add(physics.CrossSV(a.angVel, ra))
	vb := b.vel.Add(physics.CrossSV(b.angVel, rb))
	return va.Sub(vb)
}

func applyImpulse(a, b *body, p, ra, rb mgl64.Vec2) {
	a.vel = a.vel.Add(p.Mul(a.invMass))
	a.angVel += physics.Cross2(ra, p) * a.invInertia
	b.vel = b.vel.Sub(p.Mul(b.invMass))
	b.angVel -= physics.Cross2(rb, p) * b.invInertia
}

// fallbackNormal picks a separating direction when the core segments touch.
func fallbackNormal(pb, qb, towardA mgl64.Vec2) mgl64.Vec2 {
	dir := qb.Sub(pb)
	if l := dir.Len(); l > eps {
		n := mgl64.Vec2{-dir[1] / l, dir[0] / l}
		if n.Dot(towardA) < 0 {
			n = n.Mul(-1)
		}
		return n
	}
	return mgl64.Vec2{0, 1}
}

func boundsOverlap(pa, qa mgl64.Vec2, ra float64, pb, qb mgl64.Vec2, rb float64) bool {
	for axis := 0; axis < 2; axis++ {
		loA := math.Min(pa[axis], qa[axis]) - ra
		hiA := math.Max(pa[axis], qa[axis]) + ra
		loB := math.Min(pb[axis], qb[axis]) - rb
		hiB := math.Max(pb[axis], qb[axis]) + rb
		if hiA < loB || hiB < loA {
			return false
		}
	}
	return true
}

// closestPoints returns the closest pair of points between segments p1q1 and
// p2q2. Parallel overlapping segments resolve to the middle of the overlap so
// side-by-side capsules get a centred contact.
func closestPoints(p1, q1, p2, q2 mgl64.Vec2) (mgl64.Vec2, mgl64.Vec2) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	if a <= eps && e <= eps {
		return p1, p2
	}

	var s, t float64
	switch {
	case a <= eps:
		t = mgl64.Clamp(f/e, 0, 1)
	case e <= eps:
		s = mgl64.Clamp(-d1.Dot(r)/a, 0, 1)
	default:
		c := d1.Dot(r)
		b := d1.Dot(d2)
		denom := a*e - b*b
		if denom > eps*a*e {
			s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
		} else {
			s0 := p2.Sub(p1).Dot(d1) / a
			s1 := q2.Sub(p1).Dot(d1) / a
			lo := math.Max(0, math.Min(s0, s1))
			hi := math.Min(1, math.Max(s0, s1))
			s = mgl64.Clamp((lo+hi)/2, 0, 1)
		}
		t = (b*s + f) / e
		if t < 0 {
			t = 0
			s = mgl64.Clamp(-c/a, 0, 1)
		} else if t > 1 {
			t = 1
			s = mgl64.Clamp((b-c)/a, 0, 1)
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
