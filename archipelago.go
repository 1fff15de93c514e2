package engine

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vmihailenco/msgpack/v5"
)

// The archipelago is the steering runtime: a set of islands (validated
// meshes at rigid transforms) and the agents moving across them, together
// with every agent's cached path. It lives on the tick stack; between ticks
// it survives as the serialized ArchipelagoData row so paths are not
// recomputed from scratch every frame.

type PointSampleDistance struct {
	HorizontalDistance               float32
	DistanceAbove                    float32
	DistanceBelow                    float32
	VerticalPreferenceRatio          float32
	AnimationLinkMaxVerticalDistance float32
}

type ArchipelagoOptions struct {
	PointSampleDistance                       PointSampleDistance
	Neighbourhood                             float32
	AvoidanceTimeHorizon                      float32
	ObstacleAvoidanceTimeHorizon              float32
	ReachedDestinationAvoidanceResponsibility float32
}

func DefaultArchipelagoOptions() ArchipelagoOptions {
	return ArchipelagoOptions{
		PointSampleDistance: PointSampleDistance{
			HorizontalDistance:               0.5,
			DistanceAbove:                    1.0,
			DistanceBelow:                    1.0,
			VerticalPreferenceRatio:          2.0,
			AnimationLinkMaxVerticalDistance: 0.25,
		},
		Neighbourhood:                5.0,
		AvoidanceTimeHorizon:         0.5,
		ObstacleAvoidanceTimeHorizon: 0.25,
		ReachedDestinationAvoidanceResponsibility: 0.1,
	}
}

// Island is a validated mesh placed in the world. The mesh pointer is
// attached from the persisted navmesh rows; snapshots only carry the id and
// transform.
type Island struct {
	NavMeshID   uint64
	Translation mgl32.Vec3
	// Rotation around the up axis, radians.
	Rotation float32

	mesh *ValidNavigationMesh
}

func (is *Island) toLocal(p mgl32.Vec3) mgl32.Vec3 {
	return rotateY(p.Sub(is.Translation), -is.Rotation)
}

func (is *Island) toWorld(p mgl32.Vec3) mgl32.Vec3 {
	return rotateY(p, is.Rotation).Add(is.Translation)
}

func rotateY(v mgl32.Vec3, angle float32) mgl32.Vec3 {
	sin, cos := math.Sincos(float64(angle))
	s, c := float32(sin), float32(cos)
	return mgl32.Vec3{c*v.X() + s*v.Z(), v.Y(), -s*v.X() + c*v.Z()}
}

// Agent is the in-archipelago steering agent. ExternalID links it back to
// the persisted NavigationAgent row.
type Agent struct {
	ExternalID uint64

	Position mgl32.Vec3
	Velocity mgl32.Vec3

	Radius       float32
	DesiredSpeed float32
	MaxSpeed     float32

	CurrentTarget          *mgl32.Vec3
	TargetReachedCondition TargetReachedCondition
	State                  AgentState
	Paused                 bool

	desiredVelocity mgl32.Vec3
	path            *agentPath
}

// DesiredVelocity is the velocity computed by the last Update; the caller
// integrates it and writes the agent back to the store.
func (a *Agent) DesiredVelocity() mgl32.Vec3 {
	return a.desiredVelocity
}

// agentPath is a cached polygon corridor on one island, valid while the
// agent stays on a corridor polygon and the target stays in the final
// polygon.
type agentPath struct {
	IslandID uint64
	Corridor []int
	Target   mgl32.Vec3
}

type Archipelago struct {
	Options ArchipelagoOptions

	islands     []*Island
	agents      map[uint64]*Agent
	nextAgentID uint64
}

func NewArchipelago(options ArchipelagoOptions) *Archipelago {
	return &Archipelago{
		Options:     options,
		agents:      make(map[uint64]*Agent),
		nextAgentID: 1,
	}
}

// AddIsland attaches (or refreshes) the island for a persisted navmesh row.
// Re-adding an existing id replaces the mesh and transform while keeping
// agents' cached corridors on it.
func (a *Archipelago) AddIsland(navMeshID uint64, translation mgl32.Vec3, rotation float32, mesh *ValidNavigationMesh) {
	for _, island := range a.islands {
		if island.NavMeshID == navMeshID {
			island.Translation = translation
			island.Rotation = rotation
			island.mesh = mesh
			return
		}
	}
	a.islands = append(a.islands, &Island{
		NavMeshID:   navMeshID,
		Translation: translation,
		Rotation:    rotation,
		mesh:        mesh,
	})
	sort.Slice(a.islands, func(i, j int) bool { return a.islands[i].NavMeshID < a.islands[j].NavMeshID })
}

// RemoveIsland drops the island and invalidates any corridor cached on it.
func (a *Archipelago) RemoveIsland(navMeshID uint64) {
	for i, island := range a.islands {
		if island.NavMeshID == navMeshID {
			a.islands = append(a.islands[:i], a.islands[i+1:]...)
			break
		}
	}
	for _, agent := range a.agents {
		if agent.path != nil && agent.path.IslandID == navMeshID {
			agent.path = nil
		}
	}
}

// IslandIDs returns the navmesh row ids of all islands, ascending.
func (a *Archipelago) IslandIDs() []uint64 {
	ids := make([]uint64, len(a.islands))
	for i, island := range a.islands {
		ids[i] = island.NavMeshID
	}
	return ids
}

// AddAgent takes ownership of the agent and returns its archipelago id.
func (a *Archipelago) AddAgent(agent Agent) uint64 {
	id := a.nextAgentID
	a.nextAgentID++
	stored := agent
	a.agents[id] = &stored
	return id
}

func (a *Archipelago) RemoveAgent(id uint64) {
	delete(a.agents, id)
}

func (a *Archipelago) Agent(id uint64) *Agent {
	return a.agents[id]
}

// AgentIDs returns every agent id in ascending order.
func (a *Archipelago) AgentIDs() []uint64 {
	ids := make([]uint64, 0, len(a.agents))
	for id := range a.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sampledPoint is a point projected onto an island's mesh.
type sampledPoint struct {
	island  *Island
	polygon int
	// point is in world space.
	point mgl32.Vec3
}

// SamplePoint projects a world point onto the nearest navigable polygon
// within the sample-distance envelope.
func (a *Archipelago) SamplePoint(p mgl32.Vec3) (mgl32.Vec3, bool) {
	sp, ok := a.samplePoint(p)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return sp.point, true
}

func (a *Archipelago) samplePoint(p mgl32.Vec3) (sampledPoint, bool) {
	sd := a.Options.PointSampleDistance
	best := sampledPoint{polygon: -1}
	bestScore := float32(math.Inf(1))

	for _, island := range a.islands {
		if island.mesh == nil {
			continue
		}
		local := island.toLocal(p)

		meshBounds := island.mesh.Bounds
		if local.X() < meshBounds.Min.X()-sd.HorizontalDistance || local.X() > meshBounds.Max.X()+sd.HorizontalDistance ||
			local.Z() < meshBounds.Min.Z()-sd.HorizontalDistance || local.Z() > meshBounds.Max.Z()+sd.HorizontalDistance ||
			local.Y() < meshBounds.Min.Y()-sd.DistanceBelow || local.Y() > meshBounds.Max.Y()+sd.DistanceAbove {
			continue
		}

		for pi := range island.mesh.Polygons {
			closest, ok := closestPointOnPolygon(island.mesh, pi, local)
			if !ok {
				continue
			}
			dx := local.X() - closest.X()
			dz := local.Z() - closest.Z()
			horizontal := float32(math.Sqrt(float64(dx*dx + dz*dz)))
			vertical := local.Y() - closest.Y()

			if horizontal > sd.HorizontalDistance {
				continue
			}
			if vertical > sd.DistanceAbove || vertical < -sd.DistanceBelow {
				continue
			}
			score := horizontal + float32(math.Abs(float64(vertical)))*sd.VerticalPreferenceRatio
			if score < bestScore {
				bestScore = score
				best = sampledPoint{island: island, polygon: pi, point: island.toWorld(closest)}
			}
		}
	}

	if best.polygon < 0 {
		return sampledPoint{}, false
	}
	return best, true
}

// closestPointOnPolygon projects the local-space point onto the polygon over
// the XZ plane and lifts it to the polygon surface height.
func closestPointOnPolygon(mesh *ValidNavigationMesh, polygon int, p mgl32.Vec3) (mgl32.Vec3, bool) {
	verts := mesh.Polygons[polygon].Vertices

	inside := true
	for i := range verts {
		a := mesh.Vertices[verts[i]]
		b := mesh.Vertices[verts[(i+1)%len(verts)]]
		cross := (b.X()-a.X())*(p.Z()-a.Z()) - (b.Z()-a.Z())*(p.X()-a.X())
		// Interior is on the clockwise side in (x, z) for meshes wound
		// counter-clockwise about +Y.
		if cross > 1e-6 {
			inside = false
			break
		}
	}

	var x, z float32
	if inside {
		x, z = p.X(), p.Z()
	} else {
		bestDistSq := float32(math.Inf(1))
		for i := range verts {
			a := mesh.Vertices[verts[i]]
			b := mesh.Vertices[verts[(i+1)%len(verts)]]
			cx, cz := closestPointOnSegment2D(p.X(), p.Z(), a.X(), a.Z(), b.X(), b.Z())
			dx, dz := p.X()-cx, p.Z()-cz
			d := dx*dx + dz*dz
			if d < bestDistSq {
				bestDistSq = d
				x, z = cx, cz
			}
		}
	}

	y, ok := polygonSurfaceHeight(mesh, polygon, x, z)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{x, y, z}, true
}

func closestPointOnSegment2D(px, pz, ax, az, bx, bz float32) (float32, float32) {
	abx, abz := bx-ax, bz-az
	lenSq := abx*abx + abz*abz
	if lenSq < 1e-12 {
		return ax, az
	}
	t := ((px-ax)*abx + (pz-az)*abz) / lenSq
	t = mgl32.Clamp(t, 0, 1)
	return ax + t*abx, az + t*abz
}

// polygonSurfaceHeight evaluates the polygon's supporting plane at (x, z).
func polygonSurfaceHeight(mesh *ValidNavigationMesh, polygon int, x, z float32) (float32, bool) {
	verts := mesh.Polygons[polygon].Vertices
	a := mesh.Vertices[verts[0]]

	// Find two non-collinear edges for the plane basis.
	for i := 1; i < len(verts); i++ {
		for j := i + 1; j < len(verts); j++ {
			e1 := mesh.Vertices[verts[i]].Sub(a)
			e2 := mesh.Vertices[verts[j]].Sub(a)
			n := e1.Cross(e2)
			if n.LenSqr() < 1e-10 || math.Abs(float64(n.Y())) < 1e-6 {
				continue
			}
			// n·(p − a) = 0 solved for p.y.
			y := a.Y() - (n.X()*(x-a.X())+n.Z()*(z-a.Z()))/n.Y()
			return y, true
		}
	}
	return a.Y(), true
}

// Update advances every agent's steering state by deltaTime: resolve the
// agent and target onto islands, compute or reuse the polygon corridor,
// derive the desired velocity with local avoidance, and update the agent
// state machine. Positions are not integrated here; the navigation tick
// applies desired velocities and snaps the results back onto the mesh.
func (a *Archipelago) Update(rng *rand.Rand, deltaTime float32) {
	ids := a.AgentIDs()

	samples := make(map[uint64]agentSample, len(ids))
	for _, id := range ids {
		agent := a.agents[id]
		if agent.Paused {
			continue
		}
		sp, ok := a.samplePoint(agent.Position)
		samples[id] = agentSample{ok: ok, sample: sp}
	}

	for _, id := range ids {
		agent := a.agents[id]
		agent.desiredVelocity = mgl32.Vec3{}

		if agent.Paused {
			agent.State = AgentPaused
			continue
		}

		s := samples[id]
		if !s.ok {
			agent.State = AgentNotOnNavMesh
			continue
		}

		if agent.CurrentTarget == nil {
			agent.State = AgentIdle
			agent.path = nil
			agent.desiredVelocity = a.avoidanceVelocity(id, ids, mgl32.Vec3{}, rng)
			continue
		}

		target, targetOK := a.samplePoint(*agent.CurrentTarget)
		if !targetOK {
			agent.State = AgentTargetNotOnNavMesh
			continue
		}

		if target.island != s.sample.island {
			// Islands are disjoint; there is no route between them.
			agent.State = AgentNoPath
			agent.path = nil
			continue
		}

		corridor, ok := a.resolveCorridor(agent, s.sample, target)
		if !ok {
			agent.State = AgentNoPath
			agent.path = nil
			continue
		}

		waypoints := corridorWaypoints(s.sample.island, corridor, target)
		if a.targetReached(agent, s.sample, target, waypoints) {
			agent.State = AgentReachedTarget
			agent.desiredVelocity = a.avoidanceVelocity(id, ids, mgl32.Vec3{}, rng)
			continue
		}

		seek := mgl32.Vec3{}
		if len(waypoints) > 0 {
			to := waypoints[0].Sub(agent.Position)
			to[1] = 0
			if to.LenSqr() > 1e-10 {
				seek = to.Normalize().Mul(agent.DesiredSpeed)
			}
		}

		agent.desiredVelocity = a.avoidanceVelocity(id, ids, seek, rng)
		agent.State = AgentMoving
	}
}

type agentSample struct {
	ok     bool
	sample sampledPoint
}

// resolveCorridor returns the agent's polygon corridor, reusing the cached
// one when it is still valid.
func (a *Archipelago) resolveCorridor(agent *Agent, from sampledPoint, target sampledPoint) ([]int, bool) {
	island := from.island

	if p := agent.path; p != nil && p.IslandID == island.NavMeshID && len(p.Corridor) > 0 {
		endPolygon := p.Corridor[len(p.Corridor)-1]
		if endPolygon == target.polygon {
			for i, polygon := range p.Corridor {
				if polygon == from.polygon {
					// Still on the corridor; drop the part already walked.
					p.Corridor = p.Corridor[i:]
					p.Target = target.point
					return p.Corridor, true
				}
			}
		}
	}

	corridor, ok := findPolygonPath(island.mesh, from.polygon, target.polygon)
	if !ok {
		return nil, false
	}
	agent.path = &agentPath{
		IslandID: island.NavMeshID,
		Corridor: corridor,
		Target:   target.point,
	}
	return corridor, true
}

// corridorWaypoints flattens the corridor into world-space waypoints: the
// midpoint of every portal between successive polygons, then the target.
func corridorWaypoints(island *Island, corridor []int, target sampledPoint) []mgl32.Vec3 {
	mesh := island.mesh
	var waypoints []mgl32.Vec3
	for i := 0; i+1 < len(corridor); i++ {
		edge, ok := sharedEdge(mesh, corridor[i], corridor[i+1])
		if !ok {
			continue
		}
		va, vb := mesh.edgeVertices(corridor[i], edge)
		mid := va.Add(vb).Mul(0.5)
		waypoints = append(waypoints, island.toWorld(mid))
	}
	waypoints = append(waypoints, target.point)
	return waypoints
}

func sharedEdge(mesh *ValidNavigationMesh, polygon, neighbor int) (int, bool) {
	for _, conn := range mesh.Connectivity[polygon] {
		if conn.Neighbor == neighbor {
			return conn.Edge, true
		}
	}
	return 0, false
}

func (a *Archipelago) targetReached(agent *Agent, from sampledPoint, target sampledPoint, waypoints []mgl32.Vec3) bool {
	limit := agent.Radius
	if agent.TargetReachedCondition.Distance != nil {
		limit = *agent.TargetReachedCondition.Distance
	}

	switch agent.TargetReachedCondition.Kind {
	case ReachDistance:
		return target.point.Sub(agent.Position).Len() <= limit

	case ReachVisibleAtDistance:
		// Visibility collapses to sharing the target's polygon: inside one
		// convex polygon the straight line is unobstructed.
		return from.polygon == target.polygon && target.point.Sub(agent.Position).Len() <= limit

	case ReachStraightPathDistance:
		total := float32(0)
		prev := agent.Position
		for _, wp := range waypoints {
			total += wp.Sub(prev).Len()
			prev = wp
		}
		return total <= limit
	}
	return false
}

// avoidanceVelocity combines the seek velocity with separation from
// neighbouring agents and clamps to the agent's max speed.
func (a *Archipelago) avoidanceVelocity(id uint64, ids []uint64, seek mgl32.Vec3, rng *rand.Rand) mgl32.Vec3 {
	agent := a.agents[id]
	neighbourhood := a.Options.Neighbourhood

	push := mgl32.Vec3{}
	for _, otherID := range ids {
		if otherID == id {
			continue
		}
		other := a.agents[otherID]
		if other.Paused {
			continue
		}
		offset := agent.Position.Sub(other.Position)
		offset[1] = 0
		dist := offset.Len()
		reach := neighbourhood + agent.Radius + other.Radius
		if dist >= reach {
			continue
		}

		responsibility := float32(1)
		if agent.State == AgentReachedTarget {
			responsibility = a.Options.ReachedDestinationAvoidanceResponsibility
		}

		var away mgl32.Vec3
		if dist > 1e-5 {
			away = offset.Mul(1 / dist)
		} else {
			// Coincident agents: break the tie with a random horizontal
			// direction so the pair separates instead of overlapping forever.
			angle := rng.Float64() * 2 * math.Pi
			away = mgl32.Vec3{float32(math.Cos(angle)), 0, float32(math.Sin(angle))}
		}

		weight := (1 - dist/reach) / a.Options.AvoidanceTimeHorizon
		push = push.Add(away.Mul(weight * (agent.Radius + other.Radius) * responsibility))
	}

	out := seek.Add(push)
	if l := out.Len(); l > agent.MaxSpeed {
		out = out.Mul(agent.MaxSpeed / l)
	}
	return out
}

// A* over the polygon adjacency graph of one island.

type polygonPathNode struct {
	polygon int
	g, h, f float32
	parent  *polygonPathNode
	index   int
}

type polygonPathQueue []*polygonPathNode

func (pq polygonPathQueue) Len() int           { return len(pq) }
func (pq polygonPathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }
func (pq polygonPathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *polygonPathQueue) Push(x any) {
	n := x.(*polygonPathNode)
	n.index = len(*pq)
	*pq = append(*pq, n)
}
func (pq *polygonPathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1
	*pq = old[:n-1]
	return item
}

func findPolygonPath(mesh *ValidNavigationMesh, from, to int) ([]int, bool) {
	if from == to {
		return []int{from}, true
	}

	heuristic := func(polygon int) float32 {
		return mesh.Polygons[polygon].Center.Sub(mesh.Polygons[to].Center).Len()
	}

	open := &polygonPathQueue{}
	heap.Init(open)

	start := &polygonPathNode{polygon: from, h: heuristic(from)}
	start.f = start.h
	heap.Push(open, start)

	visited := map[int]*polygonPathNode{from: start}

	for open.Len() > 0 {
		current := heap.Pop(open).(*polygonPathNode)

		if current.polygon == to {
			var path []int
			for n := current; n != nil; n = n.parent {
				path = append([]int{n.polygon}, path...)
			}
			return path, true
		}

		for _, conn := range mesh.Connectivity[current.polygon] {
			step := mesh.Polygons[conn.Neighbor].Center.Sub(mesh.Polygons[current.polygon].Center).Len()
			newG := current.g + step

			node, exists := visited[conn.Neighbor]
			if exists && newG >= node.g {
				continue
			}
			if !exists {
				node = &polygonPathNode{polygon: conn.Neighbor}
				visited[conn.Neighbor] = node
			}
			node.g = newG
			node.h = heuristic(conn.Neighbor)
			node.f = node.g + node.h
			node.parent = current
			if !exists {
				heap.Push(open, node)
			} else if node.index >= 0 {
				heap.Fix(open, node.index)
			} else {
				heap.Push(open, node)
			}
		}
	}

	return nil, false
}

// Snapshot wire format. The version gates decoding: a blob from a foreign
// major version fails decode and the caller rebuilds the archipelago from
// scratch.

const archipelagoSnapshotVersion = 1

type archipelagoSnapshot struct {
	Version     int
	Options     ArchipelagoOptions
	Islands     []islandSnapshot
	Agents      []agentSnapshot
	NextAgentID uint64
}

type islandSnapshot struct {
	NavMeshID   uint64
	Translation mgl32.Vec3
	Rotation    float32
}

type agentSnapshot struct {
	ID         uint64
	ExternalID uint64

	Position mgl32.Vec3
	Velocity mgl32.Vec3

	Radius       float32
	DesiredSpeed float32
	MaxSpeed     float32

	HasTarget bool
	Target    mgl32.Vec3

	ConditionKind     ReachedConditionKind
	HasConditionDist  bool
	ConditionDistance float32

	State  AgentState
	Paused bool

	HasPath      bool
	PathIslandID uint64
	PathCorridor []int
	PathTarget   mgl32.Vec3
}

// Encode serializes the archipelago, including every agent's cached path.
// Island mesh data is not embedded; it is reattached from the navmesh rows
// when the snapshot is restored.
func (a *Archipelago) Encode() ([]byte, error) {
	snap := archipelagoSnapshot{
		Version:     archipelagoSnapshotVersion,
		Options:     a.Options,
		NextAgentID: a.nextAgentID,
	}
	for _, island := range a.islands {
		snap.Islands = append(snap.Islands, islandSnapshot{
			NavMeshID:   island.NavMeshID,
			Translation: island.Translation,
			Rotation:    island.Rotation,
		})
	}
	for _, id := range a.AgentIDs() {
		agent := a.agents[id]
		as := agentSnapshot{
			ID:            id,
			ExternalID:    agent.ExternalID,
			Position:      agent.Position,
			Velocity:      agent.Velocity,
			Radius:        agent.Radius,
			DesiredSpeed:  agent.DesiredSpeed,
			MaxSpeed:      agent.MaxSpeed,
			ConditionKind: agent.TargetReachedCondition.Kind,
			State:         agent.State,
			Paused:        agent.Paused,
		}
		if agent.CurrentTarget != nil {
			as.HasTarget = true
			as.Target = *agent.CurrentTarget
		}
		if agent.TargetReachedCondition.Distance != nil {
			as.HasConditionDist = true
			as.ConditionDistance = *agent.TargetReachedCondition.Distance
		}
		if agent.path != nil {
			as.HasPath = true
			as.PathIslandID = agent.path.IslandID
			as.PathCorridor = agent.path.Corridor
			as.PathTarget = agent.path.Target
		}
		snap.Agents = append(snap.Agents, as)
	}
	return msgpack.Marshal(snap)
}

// DecodeArchipelago restores a snapshot. Island meshes are left detached
// until AddIsland reattaches them from the navmesh rows.
func DecodeArchipelago(data []byte) (*Archipelago, error) {
	var snap archipelagoSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode archipelago: %w", err)
	}
	if snap.Version != archipelagoSnapshotVersion {
		return nil, fmt.Errorf("decode archipelago: unsupported snapshot version %d", snap.Version)
	}

	a := NewArchipelago(snap.Options)
	a.nextAgentID = snap.NextAgentID
	for _, is := range snap.Islands {
		a.islands = append(a.islands, &Island{
			NavMeshID:   is.NavMeshID,
			Translation: is.Translation,
			Rotation:    is.Rotation,
		})
	}
	for _, as := range snap.Agents {
		agent := &Agent{
			ExternalID:   as.ExternalID,
			Position:     as.Position,
			Velocity:     as.Velocity,
			Radius:       as.Radius,
			DesiredSpeed: as.DesiredSpeed,
			MaxSpeed:     as.MaxSpeed,
			TargetReachedCondition: TargetReachedCondition{
				Kind: as.ConditionKind,
			},
			State:  as.State,
			Paused: as.Paused,
		}
		if as.HasTarget {
			target := as.Target
			agent.CurrentTarget = &target
		}
		if as.HasConditionDist {
			dist := as.ConditionDistance
			agent.TargetReachedCondition.Distance = &dist
		}
		if as.HasPath {
			agent.path = &agentPath{
				IslandID: as.PathIslandID,
				Corridor: as.PathCorridor,
				Target:   as.PathTarget,
			}
		}
		a.agents[as.ID] = agent
		if as.ID >= a.nextAgentID {
			a.nextAgentID = as.ID + 1
		}
	}
	return a, nil
}
