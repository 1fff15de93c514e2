package engine

import "github.com/go-gl/mathgl/mgl32"

// Trigger is a volume reporting which rigid bodies currently overlap it.
// EntitiesInside is the authoritative set after the last collision tick;
// AddedEntities and RemovedEntities are the membership deltas against the
// tick before. All three are rewritten by the engine every tick.
type Trigger struct {
	ID      uint64
	WorldID uint64

	Position mgl32.Vec3
	Rotation mgl32.Quat

	ColliderID uint64

	EntitiesInside  []uint64
	AddedEntities   []uint64
	RemovedEntities []uint64
}

func NewTrigger(worldID uint64, position mgl32.Vec3, rotation mgl32.Quat, colliderID uint64) Trigger {
	return Trigger{
		WorldID:    worldID,
		Position:   position,
		Rotation:   rotation,
		ColliderID: colliderID,
	}
}

func (tr Trigger) Isometry() Isometry {
	return Isometry{Position: tr.Position, Rotation: tr.Rotation}
}
