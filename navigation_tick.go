package engine

// ArchipelagoData is the per-world archipelago snapshot persisted between
// ticks. Exactly zero or one row exists per world: created on the first
// navigation tick, updated on every one after.
type ArchipelagoData struct {
	ID      uint64
	WorldID uint64
	Data    []byte
}

// TickNavigation runs one navigation step for the world: restore (or build)
// the archipelago, sync its agents against the store, step the steering
// simulation, apply desired velocities with the snap-or-keep rule, and
// persist the updated snapshot.
func TickNavigation(ctx *Context, world *World, deltaTime float32) {
	sw := NewLogStopwatch(ctx, world, "navigation_tick", world.DebugNavigation)
	defer sw.End()

	sw.Span("build_restore")
	archipelago, blobRow := restoreArchipelago(ctx, world)

	sw.Span("sync_agents")
	agents := syncAgents(ctx, world, archipelago)

	sw.Span("update_archipelago")
	archipelago.Update(ctx.Rng, deltaTime)

	sw.Span("update_agents")
	for _, archAgentID := range archipelago.AgentIDs() {
		row, ok := agents[archAgentID]
		if !ok {
			continue
		}
		agent := archipelago.Agent(archAgentID)
		velocity := agent.DesiredVelocity()

		row.Velocity = velocity
		newPos := row.Position.Add(velocity.Mul(deltaTime))
		if point, ok := archipelago.SamplePoint(newPos); ok {
			// Snap onto the nav surface; otherwise keep the old position.
			row.Position = point
		}
		row.State = agent.State

		agent.Position = row.Position
		agent.Velocity = row.Velocity

		ctx.Db.NavAgents.Update(row)
	}

	sw.Span("serialize_archipelago")
	persistArchipelago(ctx, world, archipelago, blobRow)
}

// restoreArchipelago decodes the persisted snapshot when one exists (building
// a fresh archipelago when it is missing or unreadable) and syncs the island
// set against the world's navmesh rows.
func restoreArchipelago(ctx *Context, world *World) (*Archipelago, *ArchipelagoData) {
	var archipelago *Archipelago
	var blobRow *ArchipelagoData

	rows := ctx.Db.Archipelagos.FilterByWorld(world.ID)
	if len(rows) > 0 {
		row := rows[0]
		blobRow = &row
		decoded, err := DecodeArchipelago(row.Data)
		if err != nil {
			// Snapshot from a foreign engine version: rebuild from scratch.
			ctx.Log.Warnf("[World#%d] discarding archipelago snapshot: %v", world.ID, err)
		} else {
			archipelago = decoded
		}
	}
	if archipelago == nil {
		archipelago = NewArchipelago(DefaultArchipelagoOptions())
	}

	meshRows := ctx.Db.NavMeshes.FilterByWorld(world.ID)
	present := make(map[uint64]bool, len(meshRows))
	for _, meshRow := range meshRows {
		mesh, err := DecodeValidNavigationMesh(meshRow.Data)
		if err != nil {
			panic(err)
		}
		archipelago.AddIsland(meshRow.ID, meshRow.Translation, meshRow.Rotation, mesh)
		present[meshRow.ID] = true
	}
	for _, islandID := range archipelago.IslandIDs() {
		if !present[islandID] {
			archipelago.RemoveIsland(islandID)
		}
	}

	return archipelago, blobRow
}

// syncAgents mirrors the stored agents into the archipelago: archipelago
// agents whose row disappeared are removed, rows without a runtime agent get
// a fresh one. Returns archipelago agent id → store row for the apply pass.
func syncAgents(ctx *Context, world *World, archipelago *Archipelago) map[uint64]NavigationAgent {
	rows := ctx.Db.NavAgents.FilterByWorld(world.ID)
	rowsByID := make(map[uint64]NavigationAgent, len(rows))
	for _, row := range rows {
		rowsByID[row.ID] = row
	}

	out := make(map[uint64]NavigationAgent, len(rows))
	claimed := make(map[uint64]uint64, len(rows))

	for _, archAgentID := range archipelago.AgentIDs() {
		agent := archipelago.Agent(archAgentID)
		row, ok := rowsByID[agent.ExternalID]
		if !ok {
			archipelago.RemoveAgent(archAgentID)
			continue
		}
		// Refresh caller-authored fields; the runtime keeps its path cache.
		agent.Radius = row.Radius
		agent.DesiredSpeed = row.DesiredSpeed
		agent.MaxSpeed = row.MaxSpeed
		agent.Position = row.Position
		agent.Velocity = row.Velocity
		agent.Paused = row.Paused
		agent.TargetReachedCondition = row.TargetReachedCondition
		if row.CurrentTarget != nil {
			target := *row.CurrentTarget
			agent.CurrentTarget = &target
		} else {
			agent.CurrentTarget = nil
		}
		claimed[row.ID] = archAgentID
		out[archAgentID] = row
	}

	for _, row := range rows {
		if _, ok := claimed[row.ID]; ok {
			continue
		}
		agent := Agent{
			ExternalID:             row.ID,
			Position:               row.Position,
			Velocity:               row.Velocity,
			Radius:                 row.Radius,
			DesiredSpeed:           row.DesiredSpeed,
			MaxSpeed:               row.MaxSpeed,
			TargetReachedCondition: row.TargetReachedCondition,
			State:                  row.State,
			Paused:                 row.Paused,
		}
		if row.CurrentTarget != nil {
			target := *row.CurrentTarget
			agent.CurrentTarget = &target
		}
		archAgentID := archipelago.AddAgent(agent)
		out[archAgentID] = row
	}

	return out
}

func persistArchipelago(ctx *Context, world *World, archipelago *Archipelago, blobRow *ArchipelagoData) {
	data, err := archipelago.Encode()
	if err != nil {
		panic(err)
	}
	if blobRow != nil {
		blobRow.Data = data
		ctx.Db.Archipelagos.Update(*blobRow)
		return
	}
	ctx.Db.Archipelagos.Insert(ArchipelagoData{WorldID: world.ID, Data: data})
}
