package engine

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity() Isometry {
	return IdentityIsometry()
}

func isoAt(x, y, z float32) Isometry {
	return Isometry{Position: mgl32.Vec3{x, y, z}, Rotation: mgl32.QuatIdent()}
}

func TestSphereAABB(t *testing.T) {
	shape := NewShapeWrapper(SphereCollider(1, 2))
	box := shape.AABB(isoAt(1, 2, 3), 0)

	assert.InDelta(t, -1, box.Min.X(), 1e-5)
	assert.InDelta(t, 0, box.Min.Y(), 1e-5)
	assert.InDelta(t, 1, box.Min.Z(), 1e-5)
	assert.InDelta(t, 3, box.Max.X(), 1e-5)
	assert.InDelta(t, 4, box.Max.Y(), 1e-5)
	assert.InDelta(t, 5, box.Max.Z(), 1e-5)
}

func TestCuboidAABBRotated(t *testing.T) {
	shape := NewShapeWrapper(CuboidCollider(1, mgl32.Vec3{2, 2, 2}))
	rot := mgl32.QuatRotate(float32(math.Pi/4), mgl32.Vec3{0, 1, 0})
	box := shape.AABB(Isometry{Rotation: rot}, 0)

	// A unit half-extent cube rotated 45 degrees spans sqrt(2) on X and Z.
	want := float32(math.Sqrt2)
	assert.InDelta(t, want, box.Max.X(), 1e-4)
	assert.InDelta(t, want, box.Max.Z(), 1e-4)
	assert.InDelta(t, 1, box.Max.Y(), 1e-4)
}

func TestAABBDilation(t *testing.T) {
	shape := NewShapeWrapper(SphereCollider(1, 1))
	box := shape.AABB(identity(), 0.5)
	assert.InDelta(t, -1.5, box.Min.X(), 1e-5)
	assert.InDelta(t, 1.5, box.Max.X(), 1e-5)
}

func TestSphereRayCast(t *testing.T) {
	shape := NewShapeWrapper(SphereCollider(1, 1))
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}

	hit, ok := shape.CastRay(isoAt(5, 0, 0), ray, 10, false)
	require.True(t, ok)
	assert.InDelta(t, 4, hit.TimeOfImpact, 1e-5)
	assert.InDelta(t, -1, hit.Normal.X(), 1e-5)

	// Out of range.
	_, ok = shape.CastRay(isoAt(5, 0, 0), ray, 3, false)
	assert.False(t, ok)

	// Pointing away.
	away := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{-1, 0, 0}}
	_, ok = shape.CastRay(isoAt(5, 0, 0), away, 10, false)
	assert.False(t, ok)
}

func TestSolidRayInsideSphere(t *testing.T) {
	shape := NewShapeWrapper(SphereCollider(1, 2))
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}

	hit, ok := shape.CastRay(identity(), ray, 10, true)
	require.True(t, ok)
	assert.Equal(t, float32(0), hit.TimeOfImpact)
	assert.InDelta(t, -1, hit.Normal.X(), 1e-5)

	// Hollow cast from inside exits through the far surface instead.
	hit, ok = shape.CastRay(identity(), ray, 10, false)
	require.True(t, ok)
	assert.InDelta(t, 2, hit.TimeOfImpact, 1e-5)
}

func TestPlaneRayCast(t *testing.T) {
	shape := NewShapeWrapper(PlaneCollider(1, mgl32.Vec3{0, 1, 0}))

	down := Ray{Origin: mgl32.Vec3{3, 5, -2}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok := shape.CastRay(identity(), down, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 5, hit.TimeOfImpact, 1e-5)
	assert.InDelta(t, 1, hit.Normal.Y(), 1e-5)

	// Parallel ray above the plane never hits.
	parallel := Ray{Origin: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	_, ok = shape.CastRay(identity(), parallel, 100, false)
	assert.False(t, ok)

	// A solid ray starting below the plane is inside the half-space.
	below := Ray{Origin: mgl32.Vec3{0, -1, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok = shape.CastRay(identity(), below, 100, true)
	require.True(t, ok)
	assert.Equal(t, float32(0), hit.TimeOfImpact)
}

func TestCuboidRayCast(t *testing.T) {
	shape := NewShapeWrapper(CuboidCollider(1, mgl32.Vec3{2, 2, 2}))
	ray := Ray{Origin: mgl32.Vec3{-5, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}

	hit, ok := shape.CastRay(identity(), ray, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 4, hit.TimeOfImpact, 1e-5)
	assert.InDelta(t, -1, hit.Normal.X(), 1e-5)

	inside := Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, 1}}
	hit, ok = shape.CastRay(identity(), inside, 100, true)
	require.True(t, ok)
	assert.Equal(t, float32(0), hit.TimeOfImpact)
}

func TestCylinderRayCast(t *testing.T) {
	shape := NewShapeWrapper(CylinderCollider(1, 1, 4))

	side := Ray{Origin: mgl32.Vec3{-5, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok := shape.CastRay(identity(), side, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 4, hit.TimeOfImpact, 1e-5)
	assert.InDelta(t, -1, hit.Normal.X(), 1e-4)

	top := Ray{Origin: mgl32.Vec3{0, 10, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok = shape.CastRay(identity(), top, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 8, hit.TimeOfImpact, 1e-5)
	assert.InDelta(t, 1, hit.Normal.Y(), 1e-5)

	miss := Ray{Origin: mgl32.Vec3{-5, 3, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	_, ok = shape.CastRay(identity(), miss, 100, false)
	assert.False(t, ok)
}

func TestConeRayCast(t *testing.T) {
	// Base radius 1 at y=-1, apex at y=+1.
	shape := NewShapeWrapper(ConeCollider(1, 1, 2))

	base := Ray{Origin: mgl32.Vec3{0, -10, 0}, Direction: mgl32.Vec3{0, 1, 0}}
	hit, ok := shape.CastRay(identity(), base, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 9, hit.TimeOfImpact, 1e-4)
	assert.InDelta(t, -1, hit.Normal.Y(), 1e-4)

	// At y=0 the lateral radius is 0.5.
	side := Ray{Origin: mgl32.Vec3{-5, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok = shape.CastRay(identity(), side, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 4.5, hit.TimeOfImpact, 1e-3)

	over := Ray{Origin: mgl32.Vec3{-5, 0.9, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok = shape.CastRay(identity(), over, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 4.95, hit.TimeOfImpact, 1e-2)
}

func TestCapsuleRayCast(t *testing.T) {
	shape := NewShapeWrapper(CapsuleCollider(1, 0.5, 2))

	side := Ray{Origin: mgl32.Vec3{-5, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok := shape.CastRay(identity(), side, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 4.5, hit.TimeOfImpact, 1e-4)

	// Through the top hemisphere: cap apex is at y = 1.5.
	top := Ray{Origin: mgl32.Vec3{0, 10, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok = shape.CastRay(identity(), top, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 8.5, hit.TimeOfImpact, 1e-4)
	assert.InDelta(t, 1, hit.Normal.Y(), 1e-4)
}

func TestTriangleRayCast(t *testing.T) {
	shape := NewShapeWrapper(TriangleCollider(1,
		mgl32.Vec3{-1, 0, -1},
		mgl32.Vec3{1, 0, -1},
		mgl32.Vec3{0, 0, 1},
	))

	down := Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok := shape.CastRay(identity(), down, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 5, hit.TimeOfImpact, 1e-5)
	// Normal faces the ray.
	assert.InDelta(t, 1, hit.Normal.Y(), 1e-5)

	outside := Ray{Origin: mgl32.Vec3{5, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	_, ok = shape.CastRay(identity(), outside, 100, false)
	assert.False(t, ok)
}

func TestRotatedShapeRayCast(t *testing.T) {
	// A tall thin box rotated 90 degrees around Z lies along X.
	shape := NewShapeWrapper(CuboidCollider(1, mgl32.Vec3{0.2, 10, 0.2}))
	rot := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 0, 1})
	iso := Isometry{Rotation: rot}

	alongX := Ray{Origin: mgl32.Vec3{-20, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	hit, ok := shape.CastRay(iso, alongX, 100, false)
	require.True(t, ok)
	assert.InDelta(t, 15, hit.TimeOfImpact, 1e-3)
}

func TestShapeIntersections(t *testing.T) {
	sphere := NewShapeWrapper(SphereCollider(1, 1))
	cuboid := NewShapeWrapper(CuboidCollider(1, mgl32.Vec3{2, 2, 2}))
	capsule := NewShapeWrapper(CapsuleCollider(1, 0.5, 2))

	tests := []struct {
		name    string
		a, b    ShapeWrapper
		isoA    Isometry
		isoB    Isometry
		overlap bool
	}{
		{"sphere touching cuboid", sphere, cuboid, isoAt(1.9, 0, 0), identity(), true},
		{"sphere clear of cuboid", sphere, cuboid, isoAt(3, 0, 0), identity(), false},
		{"sphere inside sphere", sphere, sphere, identity(), isoAt(0.5, 0, 0), true},
		{"spheres apart", sphere, sphere, identity(), isoAt(2.5, 0, 0), false},
		{"capsule through cuboid", capsule, cuboid, isoAt(0, 2, 0), identity(), true},
		{"capsule above cuboid", capsule, cuboid, isoAt(0, 3, 0), identity(), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.a.Intersects(tc.isoA, tc.isoB, tc.b)
			if got != tc.overlap {
				t.Errorf("Intersects = %v, want %v", got, tc.overlap)
			}
		})
	}
}

func TestPlaneIntersections(t *testing.T) {
	plane := NewShapeWrapper(PlaneCollider(1, mgl32.Vec3{0, 1, 0}))
	sphere := NewShapeWrapper(SphereCollider(1, 1))

	if !plane.Intersects(identity(), isoAt(0, 0.5, 0), sphere) {
		t.Error("sphere overlapping the plane should intersect")
	}
	if plane.Intersects(identity(), isoAt(0, 3, 0), sphere) {
		t.Error("sphere well above the plane should not intersect")
	}
	// Below the surface the plane acts as a solid half-space slab.
	if !plane.Intersects(identity(), isoAt(0, -2, 0), sphere) {
		t.Error("sphere below the plane should intersect the half-space")
	}
}
