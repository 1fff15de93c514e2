package engine

import "github.com/go-gl/mathgl/mgl32"

type ColliderType int

const (
	ColliderSphere ColliderType = iota
	ColliderPlane
	ColliderCuboid
	ColliderCylinder
	ColliderCone
	ColliderCapsule
	ColliderTriangle
)

// Collider is an immutable geometric prototype referenced by rigid bodies and
// triggers. Only the fields relevant to Type are meaningful; the rest stay at
// their zero value.
type Collider struct {
	ID      uint64
	WorldID uint64

	Type   ColliderType
	Radius float32
	Normal mgl32.Vec3
	Height float32
	Size   mgl32.Vec3
	PointA mgl32.Vec3
	PointB mgl32.Vec3
	PointC mgl32.Vec3
}

func SphereCollider(worldID uint64, radius float32) Collider {
	return Collider{WorldID: worldID, Type: ColliderSphere, Radius: radius}
}

// PlaneCollider builds an unbounded plane through the origin with the given
// normal. The normal is expected to be unit length.
func PlaneCollider(worldID uint64, normal mgl32.Vec3) Collider {
	return Collider{WorldID: worldID, Type: ColliderPlane, Normal: normal}
}

// CuboidCollider builds a box with the given full extents, centered on its
// own origin.
func CuboidCollider(worldID uint64, size mgl32.Vec3) Collider {
	return Collider{WorldID: worldID, Type: ColliderCuboid, Size: size}
}

// CylinderCollider builds a cylinder of the given radius and full height,
// principal axis Y, centered on its own origin.
func CylinderCollider(worldID uint64, radius, height float32) Collider {
	return Collider{WorldID: worldID, Type: ColliderCylinder, Radius: radius, Height: height}
}

// ConeCollider builds a cone with base radius and full height, apex up along
// Y, centered on its own origin.
func ConeCollider(worldID uint64, radius, height float32) Collider {
	return Collider{WorldID: worldID, Type: ColliderCone, Radius: radius, Height: height}
}

// CapsuleCollider builds a capsule whose inner segment has the given full
// height along Y, swept by the radius.
func CapsuleCollider(worldID uint64, radius, height float32) Collider {
	return Collider{WorldID: worldID, Type: ColliderCapsule, Radius: radius, Height: height}
}

func TriangleCollider(worldID uint64, a, b, c mgl32.Vec3) Collider {
	return Collider{WorldID: worldID, Type: ColliderTriangle, PointA: a, PointB: b, PointC: c}
}
