package engine

import "github.com/go-gl/mathgl/mgl32"

type BodyType int

const (
	BodyStatic BodyType = iota
	BodyDynamic
	BodyKinematic
)

// RigidBody is a positioned instance of a collider. The engine never
// integrates motion; positions and rotations are authored by the caller
// between ticks and read back during collision detection. BodyType is caller
// metadata and does not change how the engine treats the body.
type RigidBody struct {
	ID      uint64
	WorldID uint64

	Position mgl32.Vec3
	Rotation mgl32.Quat
	BodyType BodyType

	ColliderID uint64
}

func NewRigidBody(worldID uint64, position mgl32.Vec3, rotation mgl32.Quat, bodyType BodyType, colliderID uint64) RigidBody {
	return RigidBody{
		WorldID:    worldID,
		Position:   position,
		Rotation:   rotation,
		BodyType:   bodyType,
		ColliderID: colliderID,
	}
}

func (rb RigidBody) Isometry() Isometry {
	return Isometry{Position: rb.Position, Rotation: rb.Rotation}
}
