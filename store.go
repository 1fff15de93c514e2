package engine

import (
	"fmt"
	"math/rand"

	"github.com/google/btree"
)

// Table is a keyed collection of rows of one entity type. Rows are values:
// reads return copies, and mutations only become visible through Update.
// Ids are 64-bit, assigned on insert when the row carries the zero id.
// Iteration is always in ascending id order.
type Table[T any] struct {
	name   string
	rows   map[uint64]T
	ids    *btree.BTreeG[uint64]
	nextID uint64

	rowID    func(T) uint64
	setRowID func(T, uint64) T
	worldID  func(T) (uint64, bool)

	// world_id btree index: (world_id, id) pairs, ascending
	byWorld *btree.BTreeG[worldKey]
}

type worldKey struct {
	worldID uint64
	id      uint64
}

func lessWorldKey(a, b worldKey) bool {
	if a.worldID != b.worldID {
		return a.worldID < b.worldID
	}
	return a.id < b.id
}

func lessU64(a, b uint64) bool { return a < b }

// NewTable builds a table with the given id accessors. worldID may be nil for
// tables that are not world-scoped (e.g. behavior trees).
func NewTable[T any](name string, rowID func(T) uint64, setRowID func(T, uint64) T, worldID func(T) (uint64, bool)) *Table[T] {
	return &Table[T]{
		name:     name,
		rows:     make(map[uint64]T),
		ids:      btree.NewG(8, lessU64),
		byWorld:  btree.NewG(8, lessWorldKey),
		nextID:   1,
		rowID:    rowID,
		setRowID: setRowID,
		worldID:  worldID,
	}
}

// Insert stores the row, assigning the next id when the row's id is 0.
// Returns the stored row.
func (t *Table[T]) Insert(row T) T {
	id := t.rowID(row)
	if id == 0 {
		id = t.nextID
		row = t.setRowID(row, id)
	}
	if id >= t.nextID {
		t.nextID = id + 1
	}
	if _, exists := t.rows[id]; exists {
		panic(fmt.Sprintf("%s: duplicate id %d", t.name, id))
	}
	t.rows[id] = row
	t.ids.ReplaceOrInsert(id)
	if t.worldID != nil {
		if wid, ok := t.worldID(row); ok {
			t.byWorld.ReplaceOrInsert(worldKey{wid, id})
		}
	}
	return row
}

// Find returns the row with the given id.
func (t *Table[T]) Find(id uint64) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// Update replaces the row matching the primary key. Updating a missing row is
// a programmer error.
func (t *Table[T]) Update(row T) T {
	id := t.rowID(row)
	old, ok := t.rows[id]
	if !ok {
		panic(fmt.Sprintf("%s: update of missing row %d", t.name, id))
	}
	if t.worldID != nil {
		oldW, okOld := t.worldID(old)
		newW, okNew := t.worldID(row)
		if okOld && (!okNew || oldW != newW) {
			t.byWorld.Delete(worldKey{oldW, id})
		}
		if okNew {
			t.byWorld.ReplaceOrInsert(worldKey{newW, id})
		}
	}
	t.rows[id] = row
	return row
}

// Delete removes the row with the given id, if present.
func (t *Table[T]) Delete(id uint64) {
	row, ok := t.rows[id]
	if !ok {
		return
	}
	delete(t.rows, id)
	t.ids.Delete(id)
	if t.worldID != nil {
		if wid, ok := t.worldID(row); ok {
			t.byWorld.Delete(worldKey{wid, id})
		}
	}
}

// Iter returns every row in ascending id order.
func (t *Table[T]) Iter() []T {
	out := make([]T, 0, len(t.rows))
	t.ids.Ascend(func(id uint64) bool {
		out = append(out, t.rows[id])
		return true
	})
	return out
}

// FilterByWorld returns the world's rows in ascending id order, through the
// world_id index.
func (t *Table[T]) FilterByWorld(worldID uint64) []T {
	var out []T
	t.byWorld.AscendGreaterOrEqual(worldKey{worldID, 0}, func(k worldKey) bool {
		if k.worldID != worldID {
			return false
		}
		out = append(out, t.rows[k.id])
		return true
	})
	return out
}

// MapByWorld returns the world's rows keyed by id.
func (t *Table[T]) MapByWorld(worldID uint64) map[uint64]T {
	rows := t.FilterByWorld(worldID)
	out := make(map[uint64]T, len(rows))
	for _, row := range rows {
		out[t.rowID(row)] = row
	}
	return out
}

// CountByWorld returns how many rows belong to the world.
func (t *Table[T]) CountByWorld(worldID uint64) int {
	n := 0
	t.byWorld.AscendGreaterOrEqual(worldKey{worldID, 0}, func(k worldKey) bool {
		if k.worldID != worldID {
			return false
		}
		n++
		return true
	})
	return n
}

// ClearWorld deletes every row belonging to the world.
func (t *Table[T]) ClearWorld(worldID uint64) {
	for _, row := range t.FilterByWorld(worldID) {
		t.Delete(t.rowID(row))
	}
}

// Len returns the total row count across all worlds.
func (t *Table[T]) Len() int { return len(t.rows) }

// Db bundles the engine's tables. The host owns the transactional boundary;
// within one tick invocation the Db is accessed single-threaded.
type Db struct {
	Worlds        *Table[World]
	Colliders     *Table[Collider]
	RigidBodies   *Table[RigidBody]
	Triggers      *Table[Trigger]
	RayCasts      *Table[RayCast]
	NavAgents     *Table[NavigationAgent]
	NavMeshes     *Table[NavMesh]
	Archipelagos  *Table[ArchipelagoData]
	BehaviorTrees *Table[BehaviorTree]
}

func NewDb() *Db {
	return &Db{
		Worlds: NewTable("worlds",
			func(w World) uint64 { return w.ID },
			func(w World, id uint64) World { w.ID = id; return w },
			nil),
		Colliders: NewTable("colliders",
			func(c Collider) uint64 { return c.ID },
			func(c Collider, id uint64) Collider { c.ID = id; return c },
			func(c Collider) (uint64, bool) { return c.WorldID, true }),
		RigidBodies: NewTable("rigid_bodies",
			func(rb RigidBody) uint64 { return rb.ID },
			func(rb RigidBody, id uint64) RigidBody { rb.ID = id; return rb },
			func(rb RigidBody) (uint64, bool) { return rb.WorldID, true }),
		Triggers: NewTable("triggers",
			func(tr Trigger) uint64 { return tr.ID },
			func(tr Trigger, id uint64) Trigger { tr.ID = id; return tr },
			func(tr Trigger) (uint64, bool) { return tr.WorldID, true }),
		RayCasts: NewTable("raycasts",
			func(rc RayCast) uint64 { return rc.ID },
			func(rc RayCast, id uint64) RayCast { rc.ID = id; return rc },
			func(rc RayCast) (uint64, bool) { return rc.WorldID, true }),
		NavAgents: NewTable("navigation_agents",
			func(a NavigationAgent) uint64 { return a.ID },
			func(a NavigationAgent, id uint64) NavigationAgent { a.ID = id; return a },
			func(a NavigationAgent) (uint64, bool) { return a.WorldID, true }),
		NavMeshes: NewTable("nav_meshes",
			func(nm NavMesh) uint64 { return nm.ID },
			func(nm NavMesh, id uint64) NavMesh { nm.ID = id; return nm },
			func(nm NavMesh) (uint64, bool) { return nm.WorldID, true }),
		Archipelagos: NewTable("archipelago_data",
			func(a ArchipelagoData) uint64 { return a.ID },
			func(a ArchipelagoData, id uint64) ArchipelagoData { a.ID = id; return a },
			func(a ArchipelagoData) (uint64, bool) { return a.WorldID, true }),
		BehaviorTrees: NewTable("behavior_trees",
			func(bt BehaviorTree) uint64 { return bt.ID },
			func(bt BehaviorTree, id uint64) BehaviorTree { bt.ID = id; return bt },
			nil),
	}
}

// Context is what the host hands a tick reducer: the table collection, the
// tick's deterministic RNG and the log channel.
type Context struct {
	Db  *Db
	Rng *rand.Rand
	Log Logger
}

// NewContext builds a context over a fresh Db with a seeded RNG. Mostly a
// test and embedding convenience; hosts with their own store wiring fill the
// struct directly.
func NewContext(seed int64) *Context {
	return &Context{
		Db:  NewDb(),
		Rng: rand.New(rand.NewSource(seed)),
		Log: NewNopLogger(),
	}
}
