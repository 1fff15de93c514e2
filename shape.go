package engine

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

func (a AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{
			min(a.Min.X(), other.Min.X()),
			min(a.Min.Y(), other.Min.Y()),
			min(a.Min.Z(), other.Min.Z()),
		},
		Max: mgl32.Vec3{
			max(a.Max.X(), other.Max.X()),
			max(a.Max.Y(), other.Max.Y()),
			max(a.Max.Z(), other.Max.Z()),
		},
	}
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Dilate grows the box by the given additive margin on every axis.
func (a AABB) Dilate(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// CastRay runs the slab test and returns the entry parameter. A ray starting
// inside the box reports t = 0.
func (a AABB) CastRay(ray Ray, maxDistance float32) (float32, bool) {
	tmin := float32(0)
	tmax := maxDistance
	for i := 0; i < 3; i++ {
		o := ray.Origin[i]
		d := ray.Direction[i]
		if math.Abs(float64(d)) < 1e-12 {
			if o < a.Min[i] || o > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (a.Min[i] - o) * inv
		t2 := (a.Max[i] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// Ray is an origin plus a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) PointAt(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Isometry is a rigid transform: rotate, then translate.
type Isometry struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func IdentityIsometry() Isometry {
	return Isometry{Rotation: mgl32.QuatIdent()}
}

func (iso Isometry) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return iso.Rotation.Rotate(p).Add(iso.Position)
}

func (iso Isometry) ApplyInverse(p mgl32.Vec3) mgl32.Vec3 {
	return iso.Rotation.Inverse().Rotate(p.Sub(iso.Position))
}

// RayHit is the local result of a shape ray cast.
type RayHit struct {
	TimeOfImpact float32
	Normal       mgl32.Vec3
}

// ShapeWrapper gives the seven collider types one interface: world AABB,
// ray cast, and boolean overlap against another wrapped shape.
type ShapeWrapper struct {
	collider Collider
}

func NewShapeWrapper(collider Collider) ShapeWrapper {
	return ShapeWrapper{collider: collider}
}

// planeExtent bounds the otherwise infinite plane slab for support and AABB
// purposes.
const planeExtent = 1e4

// support returns the local-space point of the shape furthest along dir.
// Every collider type is convex, so this fully describes it for GJK and for
// axis-extent queries.
func (s ShapeWrapper) support(dir mgl32.Vec3) mgl32.Vec3 {
	c := &s.collider
	switch c.Type {
	case ColliderSphere:
		if dir.LenSqr() < 1e-12 {
			return mgl32.Vec3{c.Radius, 0, 0}
		}
		return dir.Normalize().Mul(c.Radius)

	case ColliderPlane:
		// The plane acts as a thick half-space slab: unbounded along its
		// tangents, flat on the positive side, deep on the negative side.
		t1, t2 := tangentBasis(c.Normal)
		p := mgl32.Vec3{}
		if dir.Dot(t1) < 0 {
			p = p.Sub(t1.Mul(planeExtent))
		} else {
			p = p.Add(t1.Mul(planeExtent))
		}
		if dir.Dot(t2) < 0 {
			p = p.Sub(t2.Mul(planeExtent))
		} else {
			p = p.Add(t2.Mul(planeExtent))
		}
		if dir.Dot(c.Normal) < 0 {
			p = p.Sub(c.Normal.Mul(planeExtent))
		}
		return p

	case ColliderCuboid:
		h := c.Size.Mul(0.5)
		if dir.X() < 0 {
			h[0] = -h[0]
		}
		if dir.Y() < 0 {
			h[1] = -h[1]
		}
		if dir.Z() < 0 {
			h[2] = -h[2]
		}
		return h

	case ColliderCylinder:
		half := c.Height / 2
		p := mgl32.Vec3{0, half, 0}
		if dir.Y() < 0 {
			p[1] = -half
		}
		radial := mgl32.Vec3{dir.X(), 0, dir.Z()}
		if radial.LenSqr() > 1e-12 {
			radial = radial.Normalize().Mul(c.Radius)
			p[0] = radial.X()
			p[2] = radial.Z()
		}
		return p

	case ColliderCone:
		half := c.Height / 2
		apex := mgl32.Vec3{0, half, 0}
		rim := mgl32.Vec3{0, -half, 0}
		radial := mgl32.Vec3{dir.X(), 0, dir.Z()}
		if radial.LenSqr() > 1e-12 {
			radial = radial.Normalize().Mul(c.Radius)
			rim[0] = radial.X()
			rim[2] = radial.Z()
		}
		if dir.Dot(apex) >= dir.Dot(rim) {
			return apex
		}
		return rim

	case ColliderCapsule:
		half := c.Height / 2
		p := mgl32.Vec3{0, half, 0}
		if dir.Y() < 0 {
			p[1] = -half
		}
		if dir.LenSqr() > 1e-12 {
			p = p.Add(dir.Normalize().Mul(c.Radius))
		}
		return p

	case ColliderTriangle:
		best := c.PointA
		bestDot := dir.Dot(c.PointA)
		if d := dir.Dot(c.PointB); d > bestDot {
			best, bestDot = c.PointB, d
		}
		if d := dir.Dot(c.PointC); d > bestDot {
			best = c.PointC
		}
		return best
	}
	panic(fmt.Sprintf("unknown collider type %d", c.Type))
}

// supportWorld evaluates the support function under the given isometry.
func (s ShapeWrapper) supportWorld(iso Isometry, dir mgl32.Vec3) mgl32.Vec3 {
	local := iso.Rotation.Inverse().Rotate(dir)
	return iso.Apply(s.support(local))
}

// AABB returns the world axis-aligned box of the transformed shape, grown by
// the additive dilation margin. Extents come from the support function along
// the six world axes, which covers every convex type uniformly (the plane's
// bounded slab support keeps its box finite).
func (s ShapeWrapper) AABB(iso Isometry, dilation float32) AABB {
	var box AABB
	for i := 0; i < 3; i++ {
		axis := mgl32.Vec3{}
		axis[i] = 1
		box.Max[i] = s.supportWorld(iso, axis).Dot(axis)
		axis[i] = -1
		box.Min[i] = -s.supportWorld(iso, axis).Dot(axis)
	}
	return box.Dilate(dilation)
}

// Intersects reports whether the shape under isoA overlaps other under isoB.
func (s ShapeWrapper) Intersects(isoA Isometry, isoB Isometry, other ShapeWrapper) bool {
	return gjkIntersects(
		func(dir mgl32.Vec3) mgl32.Vec3 { return s.supportWorld(isoA, dir) },
		func(dir mgl32.Vec3) mgl32.Vec3 { return other.supportWorld(isoB, dir) },
		isoB.Position.Sub(isoA.Position),
	)
}

// CastRay intersects the ray with the transformed shape. With solid set, a
// ray starting inside reports an immediate hit with the normal opposing the
// ray. The hit normal is returned in world space.
func (s ShapeWrapper) CastRay(iso Isometry, ray Ray, maxDistance float32, solid bool) (RayHit, bool) {
	local := Ray{
		Origin:    iso.ApplyInverse(ray.Origin),
		Direction: iso.Rotation.Inverse().Rotate(ray.Direction),
	}

	hit, ok := s.castRayLocal(local, solid)
	if !ok || hit.TimeOfImpact > maxDistance {
		return RayHit{}, false
	}
	hit.Normal = iso.Rotation.Rotate(hit.Normal)
	return hit, true
}

func (s ShapeWrapper) castRayLocal(ray Ray, solid bool) (RayHit, bool) {
	c := &s.collider
	switch c.Type {
	case ColliderSphere:
		return castRaySphere(ray, c.Radius, solid)
	case ColliderPlane:
		return castRayPlane(ray, c.Normal, solid)
	case ColliderCuboid:
		return castRayCuboid(ray, c.Size.Mul(0.5), solid)
	case ColliderCylinder:
		return castRayCylinder(ray, c.Radius, c.Height/2, solid)
	case ColliderCone:
		return castRayCone(ray, c.Radius, c.Height/2, solid)
	case ColliderCapsule:
		return castRayCapsule(ray, c.Radius, c.Height/2, solid)
	case ColliderTriangle:
		return castRayTriangle(ray, c.PointA, c.PointB, c.PointC)
	}
	panic(fmt.Sprintf("unknown collider type %d", c.Type))
}

func insideHit(ray Ray) (RayHit, bool) {
	return RayHit{TimeOfImpact: 0, Normal: ray.Direction.Mul(-1)}, true
}

func castRaySphere(ray Ray, radius float32, solid bool) (RayHit, bool) {
	oo := ray.Origin.LenSqr()
	inside := oo < radius*radius
	if inside && solid {
		return insideHit(ray)
	}

	b := ray.Origin.Dot(ray.Direction)
	c := oo - radius*radius
	disc := b*b - c
	if disc < 0 {
		return RayHit{}, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := -b - sq
	if inside {
		// Hollow cast from inside hits the far surface.
		t = -b + sq
	}
	if t < 0 {
		return RayHit{}, false
	}
	n := ray.PointAt(t).Mul(1 / radius)
	return RayHit{TimeOfImpact: t, Normal: n}, true
}

// castRayPlane treats the plane as the boundary of the half-space opposite
// its normal: a solid ray starting on the negative side hits at t = 0.
func castRayPlane(ray Ray, normal mgl32.Vec3, solid bool) (RayHit, bool) {
	signed := normal.Dot(ray.Origin)
	if solid && signed <= 0 {
		return insideHit(ray)
	}

	denom := normal.Dot(ray.Direction)
	if math.Abs(float64(denom)) < 1e-9 {
		return RayHit{}, false
	}
	t := -signed / denom
	if t < 0 {
		return RayHit{}, false
	}
	n := normal
	if signed < 0 {
		n = normal.Mul(-1)
	}
	return RayHit{TimeOfImpact: t, Normal: n}, true
}

func castRayCuboid(ray Ray, half mgl32.Vec3, solid bool) (RayHit, bool) {
	tmin := float32(math.Inf(-1))
	tmax := float32(math.Inf(1))
	entryAxis, exitAxis := -1, -1

	for i := 0; i < 3; i++ {
		o := ray.Origin[i]
		d := ray.Direction[i]
		if math.Abs(float64(d)) < 1e-12 {
			if o < -half[i] || o > half[i] {
				return RayHit{}, false
			}
			continue
		}
		inv := 1 / d
		t1 := (-half[i] - o) * inv
		t2 := (half[i] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
			entryAxis = i
		}
		if t2 < tmax {
			tmax = t2
			exitAxis = i
		}
		if tmin > tmax {
			return RayHit{}, false
		}
	}
	if tmax < 0 {
		return RayHit{}, false
	}

	if tmin < 0 {
		// Origin inside the box.
		if solid {
			return insideHit(ray)
		}
		n := mgl32.Vec3{}
		if exitAxis >= 0 {
			if ray.Direction[exitAxis] > 0 {
				n[exitAxis] = 1
			} else {
				n[exitAxis] = -1
			}
		}
		return RayHit{TimeOfImpact: tmax, Normal: n}, true
	}

	n := mgl32.Vec3{}
	if entryAxis >= 0 {
		if ray.Direction[entryAxis] > 0 {
			n[entryAxis] = -1
		} else {
			n[entryAxis] = 1
		}
	}
	return RayHit{TimeOfImpact: tmin, Normal: n}, true
}

func castRayCylinder(ray Ray, radius, halfHeight float32, solid bool) (RayHit, bool) {
	ox, oy, oz := ray.Origin.X(), ray.Origin.Y(), ray.Origin.Z()
	dx, dy, dz := ray.Direction.X(), ray.Direction.Y(), ray.Direction.Z()

	inside := ox*ox+oz*oz <= radius*radius && oy >= -halfHeight && oy <= halfHeight
	if inside && solid {
		return insideHit(ray)
	}

	best := float32(math.Inf(1))
	var bestNormal mgl32.Vec3
	found := false
	consider := func(t float32, n mgl32.Vec3) {
		if t >= 0 && t < best {
			best = t
			bestNormal = n
			found = true
		}
	}

	// Lateral surface.
	a := dx*dx + dz*dz
	if a > 1e-12 {
		b := ox*dx + oz*dz
		c := ox*ox + oz*oz - radius*radius
		disc := b*b - a*c
		if disc >= 0 {
			sq := float32(math.Sqrt(float64(disc)))
			for _, t := range [2]float32{(-b - sq) / a, (-b + sq) / a} {
				y := oy + t*dy
				if y >= -halfHeight && y <= halfHeight {
					p := ray.PointAt(t)
					consider(t, mgl32.Vec3{p.X() / radius, 0, p.Z() / radius})
				}
			}
		}
	}

	// Caps.
	if math.Abs(float64(dy)) > 1e-12 {
		for _, capY := range [2]float32{halfHeight, -halfHeight} {
			t := (capY - oy) / dy
			if t < 0 {
				continue
			}
			p := ray.PointAt(t)
			if p.X()*p.X()+p.Z()*p.Z() <= radius*radius {
				n := mgl32.Vec3{0, 1, 0}
				if capY < 0 {
					n[1] = -1
				}
				consider(t, n)
			}
		}
	}

	if !found {
		return RayHit{}, false
	}
	return RayHit{TimeOfImpact: best, Normal: bestNormal}, true
}

func castRayCone(ray Ray, radius, halfHeight float32, solid bool) (RayHit, bool) {
	ox, oy, oz := ray.Origin.X(), ray.Origin.Y(), ray.Origin.Z()
	dx, dy, dz := ray.Direction.X(), ray.Direction.Y(), ray.Direction.Z()
	k := radius / (2 * halfHeight)

	radialAt := func(y float32) float32 { return k * (halfHeight - y) }

	insideRadial := ox*ox+oz*oz <= radialAt(oy)*radialAt(oy)
	inside := oy >= -halfHeight && oy <= halfHeight && insideRadial
	if inside && solid {
		return insideHit(ray)
	}

	best := float32(math.Inf(1))
	var bestNormal mgl32.Vec3
	found := false
	consider := func(t float32, n mgl32.Vec3) {
		if t >= 0 && t < best {
			best = t
			bestNormal = n
			found = true
		}
	}

	// Lateral surface: x² + z² = k²(halfHeight − y)².
	u := halfHeight - oy
	a := dx*dx + dz*dz - k*k*dy*dy
	b := ox*dx + oz*dz + k*k*u*dy
	c := ox*ox + oz*oz - k*k*u*u
	if math.Abs(float64(a)) > 1e-12 {
		disc := b*b - a*c
		if disc >= 0 {
			sq := float32(math.Sqrt(float64(disc)))
			for _, t := range [2]float32{(-b - sq) / a, (-b + sq) / a} {
				y := oy + t*dy
				if y >= -halfHeight && y <= halfHeight {
					p := ray.PointAt(t)
					n := mgl32.Vec3{p.X(), k * k * (halfHeight - y), p.Z()}
					if n.LenSqr() > 1e-12 {
						consider(t, n.Normalize())
					}
				}
			}
		}
	} else if math.Abs(float64(b)) > 1e-12 {
		t := -c / (2 * b)
		y := oy + t*dy
		if y >= -halfHeight && y <= halfHeight {
			p := ray.PointAt(t)
			n := mgl32.Vec3{p.X(), k * k * (halfHeight - y), p.Z()}
			if n.LenSqr() > 1e-12 {
				consider(t, n.Normalize())
			}
		}
	}

	// Base disc.
	if math.Abs(float64(dy)) > 1e-12 {
		t := (-halfHeight - oy) / dy
		if t >= 0 {
			p := ray.PointAt(t)
			if p.X()*p.X()+p.Z()*p.Z() <= radius*radius {
				consider(t, mgl32.Vec3{0, -1, 0})
			}
		}
	}

	if !found {
		return RayHit{}, false
	}
	return RayHit{TimeOfImpact: best, Normal: bestNormal}, true
}

func castRayCapsule(ray Ray, radius, halfHeight float32, solid bool) (RayHit, bool) {
	top := mgl32.Vec3{0, halfHeight, 0}
	bottom := mgl32.Vec3{0, -halfHeight, 0}

	inside := distanceToSegment(ray.Origin, bottom, top) <= radius
	if inside && solid {
		return insideHit(ray)
	}

	best := float32(math.Inf(1))
	var bestNormal mgl32.Vec3
	found := false
	consider := func(t float32, n mgl32.Vec3) {
		if t < best {
			best = t
			bestNormal = n
			found = true
		}
	}

	// Cylindrical side restricted to the inner segment.
	ox, oz := ray.Origin.X(), ray.Origin.Z()
	dx, dz := ray.Direction.X(), ray.Direction.Z()
	a := dx*dx + dz*dz
	if a > 1e-12 {
		b := ox*dx + oz*dz
		c := ox*ox + oz*oz - radius*radius
		disc := b*b - a*c
		if disc >= 0 {
			sq := float32(math.Sqrt(float64(disc)))
			for _, t := range [2]float32{(-b - sq) / a, (-b + sq) / a} {
				if t < 0 {
					continue
				}
				p := ray.PointAt(t)
				if p.Y() >= -halfHeight && p.Y() <= halfHeight {
					consider(t, mgl32.Vec3{p.X() / radius, 0, p.Z() / radius})
				}
			}
		}
	}

	// Hemispherical caps.
	for _, center := range [2]mgl32.Vec3{top, bottom} {
		shifted := Ray{Origin: ray.Origin.Sub(center), Direction: ray.Direction}
		if hit, ok := castRaySphere(shifted, radius, false); ok {
			p := shifted.PointAt(hit.TimeOfImpact)
			if (center.Y() > 0 && p.Y() >= 0) || (center.Y() < 0 && p.Y() <= 0) {
				consider(hit.TimeOfImpact, hit.Normal)
			}
		}
	}

	if !found {
		return RayHit{}, false
	}
	return RayHit{TimeOfImpact: best, Normal: bestNormal}, true
}

// castRayTriangle is Möller–Trumbore without backface culling. The triangle
// is thin, so solid has no effect.
func castRayTriangle(ray Ray, a, b, c mgl32.Vec3) (RayHit, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := ray.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(float64(det)) < 1e-9 {
		return RayHit{}, false
	}
	inv := 1 / det
	tv := ray.Origin.Sub(a)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return RayHit{}, false
	}
	q := tv.Cross(e1)
	v := ray.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return RayHit{}, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return RayHit{}, false
	}
	n := e1.Cross(e2).Normalize()
	if n.Dot(ray.Direction) > 0 {
		n = n.Mul(-1)
	}
	return RayHit{TimeOfImpact: t, Normal: n}, true
}

func distanceToSegment(p, a, b mgl32.Vec3) float32 {
	ab := b.Sub(a)
	t := p.Sub(a).Dot(ab) / ab.LenSqr()
	t = mgl32.Clamp(t, 0, 1)
	return p.Sub(a.Add(ab.Mul(t))).Len()
}

func tangentBasis(normal mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	var t1 mgl32.Vec3
	if math.Abs(float64(normal.X())) > 0.9 {
		t1 = mgl32.Vec3{0, 1, 0}
	} else {
		t1 = mgl32.Vec3{1, 0, 0}
	}
	t1 = t1.Sub(normal.Mul(t1.Dot(normal))).Normalize()
	t2 := normal.Cross(t1).Normalize()
	return t1, t2
}
