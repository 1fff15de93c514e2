package engine

import "github.com/go-gl/mathgl/mgl32"

// Boolean GJK overlap test over support functions. The simplex grows from a
// point to a tetrahedron while converging toward the origin of the Minkowski
// difference; containing the origin means the shapes overlap.

type simplex struct {
	points [4]mgl32.Vec3
	count  int
}

func (s *simplex) push(p mgl32.Vec3) {
	s.points[s.count] = p
	s.count++
}

func (s *simplex) set(points ...mgl32.Vec3) {
	s.count = len(points)
	copy(s.points[:], points)
}

type supportFn func(dir mgl32.Vec3) mgl32.Vec3

func minkowskiSupport(a, b supportFn, dir mgl32.Vec3) mgl32.Vec3 {
	return a(dir).Sub(b(dir.Mul(-1)))
}

const gjkMaxIterations = 32

// gjkIntersects reports whether the two supported convex shapes overlap.
// initialDir seeds the search; pointing from one shape toward the other
// typically cuts a few iterations.
func gjkIntersects(a, b supportFn, initialDir mgl32.Vec3) bool {
	dir := initialDir
	if dir.LenSqr() < 1e-8 {
		dir = mgl32.Vec3{1, 0, 0}
	}

	var s simplex
	s.push(minkowskiSupport(a, b, dir))

	dir = s.points[0].Mul(-1)
	if dir.LenSqr() < 1e-16 {
		// First support point is the origin: shapes touch exactly.
		return true
	}

	for i := 0; i < gjkMaxIterations; i++ {
		p := minkowskiSupport(a, b, dir)
		if p.Dot(dir) <= 0 {
			// The new point never crossed the origin; separation is proven.
			return false
		}
		s.push(p)
		if containsOrigin(&s, &dir) {
			return true
		}
	}
	return false
}

func containsOrigin(s *simplex, dir *mgl32.Vec3) bool {
	switch s.count {
	case 2:
		return gjkLine(s, dir)
	case 3:
		return gjkTriangle(s, dir)
	case 4:
		return gjkTetrahedron(s, dir)
	}
	return false
}

func gjkLine(s *simplex, dir *mgl32.Vec3) bool {
	a := s.points[1] // most recent point
	b := s.points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.Dot(ao) > 0 {
		*dir = ab.Cross(ao).Cross(ab)
		if dir.LenSqr() < 1e-16 {
			// Origin lies on the segment.
			return true
		}
	} else {
		s.set(a)
		*dir = ao
	}
	return false
}

func gjkTriangle(s *simplex, dir *mgl32.Vec3) bool {
	a := s.points[2]
	b := s.points[1]
	c := s.points[0]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	if abc.Cross(ac).Dot(ao) > 0 {
		if ac.Dot(ao) > 0 {
			s.set(c, a)
			*dir = ac.Cross(ao).Cross(ac)
		} else {
			s.set(b, a)
			return gjkLine(s, dir)
		}
	} else if ab.Cross(abc).Dot(ao) > 0 {
		s.set(b, a)
		return gjkLine(s, dir)
	} else if abc.Dot(ao) > 0 {
		*dir = abc
	} else {
		s.set(b, c, a)
		*dir = abc.Mul(-1)
	}
	return false
}

func gjkTetrahedron(s *simplex, dir *mgl32.Vec3) bool {
	a := s.points[3]
	b := s.points[2]
	c := s.points[1]
	d := s.points[0]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	abc := ab.Cross(ac)
	acd := ac.Cross(ad)
	adb := ad.Cross(ab)

	if abc.Dot(ao) > 0 {
		s.set(c, b, a)
		return gjkTriangle(s, dir)
	}
	if acd.Dot(ao) > 0 {
		s.set(d, c, a)
		return gjkTriangle(s, dir)
	}
	if adb.Dot(ao) > 0 {
		s.set(b, d, a)
		return gjkTriangle(s, dir)
	}
	// Origin is inside all four faces.
	return true
}
