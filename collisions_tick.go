package engine

import (
	"fmt"

	"github.com/emirpasic/gods/v2/sets/hashset"
)

// TickCollisions runs one collision step for the world: gather entities,
// broad phase over a fresh BVH, narrow phase per candidate, then persist the
// per-raycast and per-trigger membership deltas.
func TickCollisions(ctx *Context, world *World) {
	sw := NewLogStopwatch(ctx, world, "collisions_tick", world.DebugCollisions)
	defer sw.End()

	sw.Span("gather_entities")
	colliders := make(map[uint64]ShapeWrapper)
	for _, collider := range ctx.Db.Colliders.FilterByWorld(world.ID) {
		colliders[collider.ID] = NewShapeWrapper(collider)
	}
	rigidBodies := ctx.Db.RigidBodies.FilterByWorld(world.ID)
	triggers := ctx.Db.Triggers.FilterByWorld(world.ID)
	raycasts := ctx.Db.RayCasts.FilterByWorld(world.ID)

	sw.Span("broad_phase")
	broadRaycastHits, broadTriggerHits := runBroadPhase(rigidBodies, colliders, raycasts, triggers, world)

	sw.Span("narrow_phase")
	bodiesByID := make(map[uint64]RigidBody, len(rigidBodies))
	for _, rb := range rigidBodies {
		bodiesByID[rb.ID] = rb
	}
	narrowRaycastHits, narrowTriggerHits := runNarrowPhase(
		broadRaycastHits, broadTriggerHits, colliders, bodiesByID, raycasts, triggers)

	sw.Span("update_entities")
	updateCollisionEntities(ctx, world, narrowRaycastHits, narrowTriggerHits, raycasts, triggers)
}

func lookupShape(colliders map[uint64]ShapeWrapper, colliderID uint64, owner string, ownerID uint64) ShapeWrapper {
	shape, ok := colliders[colliderID]
	if !ok {
		panic(fmt.Sprintf("%s %d references missing collider %d", owner, ownerID, colliderID))
	}
	return shape
}

func runBroadPhase(
	rigidBodies []RigidBody,
	colliders map[uint64]ShapeWrapper,
	raycasts []RayCast,
	triggers []Trigger,
	world *World,
) (map[uint64][]uint64, map[uint64][]uint64) {
	aabbs := make([]AABB, 0, len(rigidBodies))
	bodyIDs := make([]uint64, 0, len(rigidBodies))
	for _, rb := range rigidBodies {
		shape := lookupShape(colliders, rb.ColliderID, "rigid body", rb.ID)
		aabbs = append(aabbs, shape.AABB(rb.Isometry(), world.AabbDilationFactor))
		bodyIDs = append(bodyIDs, rb.ID)
	}

	bvh := BuildBVH(aabbs)

	raycastHits := make(map[uint64][]uint64, len(raycasts))
	for _, raycast := range raycasts {
		raycast.checkDirection()
		ray := Ray{Origin: raycast.Origin, Direction: raycast.Direction}
		var hits []uint64
		bvh.TraverseRay(ray, raycast.MaxDistance, func(leaf int) {
			hits = append(hits, bodyIDs[leaf])
		})
		raycastHits[raycast.ID] = hits
	}

	triggerHits := make(map[uint64][]uint64, len(triggers))
	for _, trigger := range triggers {
		shape := lookupShape(colliders, trigger.ColliderID, "trigger", trigger.ID)
		aabb := shape.AABB(trigger.Isometry(), world.AabbDilationFactor)
		var hits []uint64
		bvh.IntersectAABB(aabb, func(leaf int) {
			hits = append(hits, bodyIDs[leaf])
		})
		triggerHits[trigger.ID] = hits
	}

	return raycastHits, triggerHits
}

func runNarrowPhase(
	broadRaycastHits map[uint64][]uint64,
	broadTriggerHits map[uint64][]uint64,
	colliders map[uint64]ShapeWrapper,
	rigidBodies map[uint64]RigidBody,
	raycasts []RayCast,
	triggers []Trigger,
) (map[uint64][]RayCastHit, map[uint64][]uint64) {
	narrowRaycastHits := make(map[uint64][]RayCastHit, len(broadRaycastHits))
	for _, raycast := range raycasts {
		ray := Ray{Origin: raycast.Origin, Direction: raycast.Direction}
		var validHits []RayCastHit
		for _, rigidBodyID := range broadRaycastHits[raycast.ID] {
			rb := rigidBodies[rigidBodyID]
			shape := lookupShape(colliders, rb.ColliderID, "rigid body", rb.ID)
			hit, ok := shape.CastRay(rb.Isometry(), ray, raycast.MaxDistance, raycast.Solid)
			if !ok {
				continue
			}
			validHits = append(validHits, RayCastHit{
				RigidBodyID: rigidBodyID,
				Distance:    hit.TimeOfImpact,
				Position:    ray.PointAt(hit.TimeOfImpact),
				Normal:      hit.Normal,
			})
		}
		narrowRaycastHits[raycast.ID] = validHits
	}

	narrowTriggerHits := make(map[uint64][]uint64, len(broadTriggerHits))
	for _, trigger := range triggers {
		triggerShape := lookupShape(colliders, trigger.ColliderID, "trigger", trigger.ID)
		triggerIso := trigger.Isometry()
		var validHits []uint64
		for _, rigidBodyID := range broadTriggerHits[trigger.ID] {
			rb := rigidBodies[rigidBodyID]
			bodyShape := lookupShape(colliders, rb.ColliderID, "rigid body", rb.ID)
			if triggerShape.Intersects(triggerIso, rb.Isometry(), bodyShape) {
				validHits = append(validHits, rigidBodyID)
			}
		}
		narrowTriggerHits[trigger.ID] = validHits
	}

	return narrowRaycastHits, narrowTriggerHits
}

func updateCollisionEntities(
	ctx *Context,
	world *World,
	raycastHits map[uint64][]RayCastHit,
	triggerHits map[uint64][]uint64,
	raycasts []RayCast,
	triggers []Trigger,
) {
	for _, raycast := range raycasts {
		current := raycastHits[raycast.ID]
		previous := raycast.Hits
		raycast.AddedHits = diffRayCastHits(current, previous)
		raycast.RemovedHits = diffRayCastHits(previous, current)
		raycast.Hits = current
		ctx.Db.RayCasts.Update(raycast)
	}

	for _, trigger := range triggers {
		current := triggerHits[trigger.ID]
		previous := trigger.EntitiesInside
		trigger.AddedEntities = diffIDs(current, previous)
		trigger.RemovedEntities = diffIDs(previous, current)
		trigger.EntitiesInside = current

		if world.DebugCollisions && (len(trigger.AddedEntities) > 0 || len(trigger.RemovedEntities) > 0) {
			ctx.Log.Debugf("[World#%d] Trigger#%d inside: %v, added: %v, removed: %v",
				world.ID, trigger.ID, trigger.EntitiesInside, trigger.AddedEntities, trigger.RemovedEntities)
		}

		ctx.Db.Triggers.Update(trigger)
	}
}

// diffRayCastHits returns the hits of a that have no bit-exact match in b.
func diffRayCastHits(a, b []RayCastHit) []RayCastHit {
	exclude := hashset.New[rayCastHitKey]()
	for _, hit := range b {
		exclude.Add(hit.key())
	}
	diff := []RayCastHit{}
	for _, hit := range a {
		if !exclude.Contains(hit.key()) {
			diff = append(diff, hit)
		}
	}
	return diff
}

func diffIDs(a, b []uint64) []uint64 {
	exclude := hashset.New[uint64]()
	for _, id := range b {
		exclude.Add(id)
	}
	diff := []uint64{}
	for _, id := range a {
		if !exclude.Contains(id) {
			diff = append(diff, id)
		}
	}
	return diff
}
