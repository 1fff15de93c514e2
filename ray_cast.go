package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// RayCastHit is a single hit reported by a persistent raycast.
type RayCastHit struct {
	RigidBodyID uint64
	Distance    float32
	Position    mgl32.Vec3
	Normal      mgl32.Vec3
}

// rayCastHitKey is the bit-exact identity of a hit. Two hits compare equal
// only when every float matches to the bit, so a hit whose distance,
// position or normal changed by any amount shows up in both removed and
// added.
type rayCastHitKey struct {
	rigidBodyID uint64
	distance    uint32
	position    [3]uint32
	normal      [3]uint32
}

func (h RayCastHit) key() rayCastHitKey {
	return rayCastHitKey{
		rigidBodyID: h.RigidBodyID,
		distance:    math.Float32bits(h.Distance),
		position:    vec3Bits(h.Position),
		normal:      vec3Bits(h.Normal),
	}
}

func vec3Bits(v mgl32.Vec3) [3]uint32 {
	return [3]uint32{math.Float32bits(v[0]), math.Float32bits(v[1]), math.Float32bits(v[2])}
}

// Equal reports bit-exact equality with other.
func (h RayCastHit) Equal(other RayCastHit) bool {
	return h.key() == other.key()
}

// RayCast is a persistent ray query. Hits holds every body the ray currently
// intersects; AddedHits and RemovedHits are deltas against the previous tick.
type RayCast struct {
	ID      uint64
	WorldID uint64

	Origin mgl32.Vec3
	// Direction is unit length; NewRayCast normalizes it.
	Direction   mgl32.Vec3
	MaxDistance float32

	// Solid makes rays starting inside a shape register an immediate hit,
	// which is how callers detect entities fully enclosing the origin.
	Solid bool

	Hits        []RayCastHit
	AddedHits   []RayCastHit
	RemovedHits []RayCastHit
}

func NewRayCast(worldID uint64, origin, direction mgl32.Vec3, maxDistance float32, solid bool) RayCast {
	if direction.Len() == 0 {
		panic("raycast direction must be non-zero")
	}
	return RayCast{
		WorldID:     worldID,
		Origin:      origin,
		Direction:   direction.Normalize(),
		MaxDistance: maxDistance,
		Solid:       solid,
	}
}

const rayDirectionTolerance = 1e-6

// checkDirection panics when the persisted direction drifted off unit length,
// which means the row was mutated without going through NewRayCast.
func (rc RayCast) checkDirection() {
	l := rc.Direction.Len()
	if l < 1-rayDirectionTolerance || l > 1+rayDirectionTolerance {
		panic("raycast direction is not unit length")
	}
}
