package engine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAutoIncrement(t *testing.T) {
	ctx := newTestContext(t)

	a := ctx.Db.Colliders.Insert(SphereCollider(1, 1))
	b := ctx.Db.Colliders.Insert(SphereCollider(1, 2))
	assert.Equal(t, uint64(1), a.ID)
	assert.Equal(t, uint64(2), b.ID)

	// Explicit ids are honored and advance the counter past them.
	c := Collider{ID: 10, WorldID: 1, Type: ColliderSphere, Radius: 3}
	c = ctx.Db.Colliders.Insert(c)
	assert.Equal(t, uint64(10), c.ID)
	d := ctx.Db.Colliders.Insert(SphereCollider(1, 4))
	assert.Equal(t, uint64(11), d.ID)
}

func TestTableFindUpdateDelete(t *testing.T) {
	ctx := newTestContext(t)

	row := ctx.Db.Colliders.Insert(SphereCollider(1, 1))

	got, ok := ctx.Db.Colliders.Find(row.ID)
	require.True(t, ok)
	assert.Equal(t, float32(1), got.Radius)

	got.Radius = 5
	ctx.Db.Colliders.Update(got)
	got, _ = ctx.Db.Colliders.Find(row.ID)
	assert.Equal(t, float32(5), got.Radius)

	ctx.Db.Colliders.Delete(row.ID)
	_, ok = ctx.Db.Colliders.Find(row.ID)
	assert.False(t, ok)

	// Rows are values: mutating a returned copy changes nothing until Update.
	row2 := ctx.Db.Colliders.Insert(SphereCollider(1, 1))
	copy1, _ := ctx.Db.Colliders.Find(row2.ID)
	copy1.Radius = 99
	fresh, _ := ctx.Db.Colliders.Find(row2.ID)
	assert.Equal(t, float32(1), fresh.Radius)
}

func TestUpdateMissingRowPanics(t *testing.T) {
	ctx := newTestContext(t)
	assert.Panics(t, func() {
		ctx.Db.Colliders.Update(Collider{ID: 123, WorldID: 1})
	})
}

func TestFilterByWorld(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Db.RigidBodies.Insert(NewRigidBody(1, mgl32.Vec3{}, mgl32.QuatIdent(), BodyStatic, 1))
	ctx.Db.RigidBodies.Insert(NewRigidBody(2, mgl32.Vec3{}, mgl32.QuatIdent(), BodyStatic, 1))
	ctx.Db.RigidBodies.Insert(NewRigidBody(1, mgl32.Vec3{}, mgl32.QuatIdent(), BodyStatic, 1))

	world1 := ctx.Db.RigidBodies.FilterByWorld(1)
	require.Len(t, world1, 2)
	// Ascending id order.
	assert.Less(t, world1[0].ID, world1[1].ID)

	assert.Len(t, ctx.Db.RigidBodies.FilterByWorld(2), 1)
	assert.Empty(t, ctx.Db.RigidBodies.FilterByWorld(3))
	assert.Equal(t, 2, ctx.Db.RigidBodies.CountByWorld(1))
}

func TestUpdateMovesWorldIndex(t *testing.T) {
	ctx := newTestContext(t)

	row := ctx.Db.RigidBodies.Insert(NewRigidBody(1, mgl32.Vec3{}, mgl32.QuatIdent(), BodyStatic, 1))
	row.WorldID = 2
	ctx.Db.RigidBodies.Update(row)

	assert.Empty(t, ctx.Db.RigidBodies.FilterByWorld(1))
	assert.Len(t, ctx.Db.RigidBodies.FilterByWorld(2), 1)
}

func TestClearWorld(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Db.Colliders.Insert(SphereCollider(1, 1))
	ctx.Db.Colliders.Insert(SphereCollider(1, 2))
	ctx.Db.Colliders.Insert(SphereCollider(2, 3))

	ctx.Db.Colliders.ClearWorld(1)
	assert.Equal(t, 0, ctx.Db.Colliders.CountByWorld(1))
	assert.Equal(t, 1, ctx.Db.Colliders.CountByWorld(2))
	assert.Equal(t, 1, ctx.Db.Colliders.Len())
}

func TestIterOrdered(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Db.BehaviorTrees.Insert(BehaviorTree{ID: 5})
	ctx.Db.BehaviorTrees.Insert(BehaviorTree{ID: 2})
	ctx.Db.BehaviorTrees.Insert(BehaviorTree{})

	rows := ctx.Db.BehaviorTrees.Iter()
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(2), rows[0].ID)
	assert.Equal(t, uint64(5), rows[1].ID)
	assert.Equal(t, uint64(6), rows[2].ID)
}
