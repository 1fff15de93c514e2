package engine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(42)
}

func createTestWorld(ctx *Context) World {
	return ctx.Db.Worlds.Insert(NewWorld())
}

func TestRayCastHitsSphere(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	collider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 1))
	body := ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{5, 0, 0}, mgl32.QuatIdent(), BodyDynamic, collider.ID))
	ray := ctx.Db.RayCasts.Insert(NewRayCast(world.ID, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, 10, false))

	TickCollisions(ctx, &world)

	got, _ := ctx.Db.RayCasts.Find(ray.ID)
	require.Len(t, got.Hits, 1)

	hit := got.Hits[0]
	assert.Equal(t, body.ID, hit.RigidBodyID)
	assert.InDelta(t, 4.0, hit.Distance, 1e-4)
	assert.InDelta(t, 4.0, hit.Position.X(), 1e-4)
	assert.InDelta(t, -1.0, hit.Normal.X(), 1e-4)

	require.Len(t, got.AddedHits, 1)
	assert.True(t, got.AddedHits[0].Equal(hit))
	assert.Empty(t, got.RemovedHits)
}

func TestRayCastDeltaAcrossTicks(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	collider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 1))
	body := ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{5, 0, 0}, mgl32.QuatIdent(), BodyDynamic, collider.ID))
	ray := ctx.Db.RayCasts.Insert(NewRayCast(world.ID, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, 10, false))

	TickCollisions(ctx, &world)

	// Unchanged scene: membership stable, no deltas.
	TickCollisions(ctx, &world)
	got, _ := ctx.Db.RayCasts.Find(ray.ID)
	assert.Len(t, got.Hits, 1)
	assert.Empty(t, got.AddedHits)
	assert.Empty(t, got.RemovedHits)

	// Move the body out of the ray.
	body.Position = mgl32.Vec3{5, 20, 0}
	ctx.Db.RigidBodies.Update(body)
	TickCollisions(ctx, &world)

	got, _ = ctx.Db.RayCasts.Find(ray.ID)
	assert.Empty(t, got.Hits)
	assert.Empty(t, got.AddedHits)
	require.Len(t, got.RemovedHits, 1)
	assert.Equal(t, body.ID, got.RemovedHits[0].RigidBodyID)
}

// Delta law: hits == (previous ∪ added) \ removed and added ∩ removed == ∅.
func TestRayCastDeltaConsistency(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	collider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 1))
	for i := 0; i < 4; i++ {
		ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{float32(3 + 3*i), 0, 0}, mgl32.QuatIdent(), BodyDynamic, collider.ID))
	}
	ray := ctx.Db.RayCasts.Insert(NewRayCast(world.ID, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, 100, false))

	TickCollisions(ctx, &world)
	previous, _ := ctx.Db.RayCasts.Find(ray.ID)

	// Shift every body so each hit changes identity.
	for _, body := range ctx.Db.RigidBodies.FilterByWorld(world.ID) {
		body.Position = body.Position.Add(mgl32.Vec3{0.25, 0, 0})
		ctx.Db.RigidBodies.Update(body)
	}
	TickCollisions(ctx, &world)
	current, _ := ctx.Db.RayCasts.Find(ray.ID)

	reconstructed := map[rayCastHitKey]bool{}
	for _, h := range previous.Hits {
		reconstructed[h.key()] = true
	}
	for _, h := range current.AddedHits {
		reconstructed[h.key()] = true
	}
	for _, h := range current.RemovedHits {
		delete(reconstructed, h.key())
	}
	assert.Len(t, current.Hits, len(reconstructed))
	for _, h := range current.Hits {
		assert.True(t, reconstructed[h.key()], "hit missing from (previous ∪ added) \\ removed")
	}

	for _, a := range current.AddedHits {
		for _, r := range current.RemovedHits {
			assert.False(t, a.Equal(r), "added and removed overlap")
		}
	}
}

func TestTriggerEnterExit(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	boxCollider := ctx.Db.Colliders.Insert(CuboidCollider(world.ID, mgl32.Vec3{2, 2, 2}))
	sphereCollider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 0.5))

	b1 := ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{0.5, 0, 0}, mgl32.QuatIdent(), BodyDynamic, sphereCollider.ID))
	b2 := ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{10, 0, 0}, mgl32.QuatIdent(), BodyDynamic, sphereCollider.ID))

	trigger := NewTrigger(world.ID, mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), boxCollider.ID)
	trigger.EntitiesInside = []uint64{b1.ID}
	trigger = ctx.Db.Triggers.Insert(trigger)

	TickCollisions(ctx, &world)

	got, _ := ctx.Db.Triggers.Find(trigger.ID)
	assert.Equal(t, []uint64{b1.ID}, got.EntitiesInside)
	assert.Empty(t, got.AddedEntities)
	assert.Empty(t, got.RemovedEntities)

	// Swap the two bodies.
	b1.Position = mgl32.Vec3{10, 0, 0}
	ctx.Db.RigidBodies.Update(b1)
	b2.Position = mgl32.Vec3{0, 0, 0}
	ctx.Db.RigidBodies.Update(b2)

	TickCollisions(ctx, &world)

	got, _ = ctx.Db.Triggers.Find(trigger.ID)
	assert.Equal(t, []uint64{b2.ID}, got.EntitiesInside)
	assert.Equal(t, []uint64{b2.ID}, got.AddedEntities)
	assert.Equal(t, []uint64{b1.ID}, got.RemovedEntities)
}

func TestTriggerRespectsRotatedPose(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	// Long thin box trigger rotated to lie along X.
	boxCollider := ctx.Db.Colliders.Insert(CuboidCollider(world.ID, mgl32.Vec3{0.4, 8, 0.4}))
	sphereCollider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 0.5))

	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	trigger := ctx.Db.Triggers.Insert(NewTrigger(world.ID, mgl32.Vec3{0, 0, 0}, rot, boxCollider.ID))

	inside := ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{3, 0, 0}, mgl32.QuatIdent(), BodyDynamic, sphereCollider.ID))
	ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{0, 3, 0}, mgl32.QuatIdent(), BodyDynamic, sphereCollider.ID))

	TickCollisions(ctx, &world)

	got, _ := ctx.Db.Triggers.Find(trigger.ID)
	assert.Equal(t, []uint64{inside.ID}, got.EntitiesInside)
}

func TestCollisionTickDeterminism(t *testing.T) {
	build := func() (*Context, World, uint64) {
		ctx := NewContext(1234)
		world := createTestWorld(ctx)
		collider := ctx.Db.Colliders.Insert(SphereCollider(world.ID, 1))
		for i := 0; i < 16; i++ {
			ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID,
				mgl32.Vec3{float32(i)*2 + 3, float32(i%3) * 0.4, float32(i%5) * 0.3},
				mgl32.QuatIdent(), BodyDynamic, collider.ID))
		}
		ray := ctx.Db.RayCasts.Insert(NewRayCast(world.ID, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0.01, 0.01}, 100, false))
		return ctx, world, ray.ID
	}

	ctxA, worldA, rayA := build()
	ctxB, worldB, rayB := build()
	TickCollisions(ctxA, &worldA)
	TickCollisions(ctxB, &worldB)

	gotA, _ := ctxA.Db.RayCasts.Find(rayA)
	gotB, _ := ctxB.Db.RayCasts.Find(rayB)
	assert.Equal(t, gotA.Hits, gotB.Hits)
	assert.Equal(t, gotA.AddedHits, gotB.AddedHits)
}

func TestDanglingColliderPanics(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	ctx.Db.RigidBodies.Insert(NewRigidBody(world.ID, mgl32.Vec3{}, mgl32.QuatIdent(), BodyDynamic, 999))
	ctx.Db.RayCasts.Insert(NewRayCast(world.ID, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 10, false))

	assert.Panics(t, func() { TickCollisions(ctx, &world) })
}

func TestNonUnitRayDirectionPanics(t *testing.T) {
	ctx := newTestContext(t)
	world := createTestWorld(ctx)

	ray := NewRayCast(world.ID, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 10, false)
	ray.Direction = mgl32.Vec3{2, 0, 0}
	ctx.Db.RayCasts.Insert(ray)

	assert.Panics(t, func() { TickCollisions(ctx, &world) })
}
