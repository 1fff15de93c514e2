package engine

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vmihailenco/msgpack/v5"
)

// ExternalNavMesh is the caller-facing mesh description handed to the
// importer: a vertex pool, polygons as counter-clockwise vertex index loops
// (seen from above), and a type index per polygon.
type ExternalNavMesh struct {
	Translation        mgl32.Vec3
	Rotation           float32
	Vertices           []mgl32.Vec3
	Polygons           [][]uint64
	PolygonTypeIndices []uint64
}

// NavMesh is the persisted row: the validated mesh encoded as an opaque blob
// plus the island transform. Ticks decode the blob and must never
// re-validate.
type NavMesh struct {
	ID      uint64
	WorldID uint64

	Translation mgl32.Vec3
	// Rotation around the up axis, radians.
	Rotation float32
	Data     []byte
}

// ValidPolygon is one polygon of a validated mesh with its derived data.
type ValidPolygon struct {
	Vertices []int
	Bounds   AABB
	Center   mgl32.Vec3
}

// Connection links one polygon edge to the neighboring polygon sharing it.
type Connection struct {
	Edge     int
	Neighbor int
}

// MeshEdge names one edge of one polygon.
type MeshEdge struct {
	Polygon int
	Edge    int
}

// ValidNavigationMesh is a navigation mesh that passed import validation:
// connectivity, boundary edges and polygon bounds are derived and trusted by
// every tick that decodes it.
type ValidNavigationMesh struct {
	Vertices           []mgl32.Vec3
	Polygons           []ValidPolygon
	Connectivity       [][]Connection
	BoundaryEdges      []MeshEdge
	Bounds             AABB
	PolygonTypeIndices []uint64
}

// Validate derives a ValidNavigationMesh from the external description or
// reports why the mesh is unusable.
func (m ExternalNavMesh) Validate() (*ValidNavigationMesh, error) {
	if len(m.Polygons) == 0 {
		return nil, fmt.Errorf("navmesh has no polygons")
	}
	if len(m.PolygonTypeIndices) != len(m.Polygons) {
		return nil, fmt.Errorf("navmesh has %d polygons but %d type indices", len(m.Polygons), len(m.PolygonTypeIndices))
	}

	valid := &ValidNavigationMesh{
		Vertices:           m.Vertices,
		Polygons:           make([]ValidPolygon, len(m.Polygons)),
		Connectivity:       make([][]Connection, len(m.Polygons)),
		PolygonTypeIndices: m.PolygonTypeIndices,
	}

	type edgeKey struct{ a, b uint64 }
	edgeOwners := make(map[edgeKey][]MeshEdge)

	for pi, poly := range m.Polygons {
		if len(poly) < 3 {
			return nil, fmt.Errorf("polygon %d has %d vertices, need at least 3", pi, len(poly))
		}
		for _, vi := range poly {
			if vi >= uint64(len(m.Vertices)) {
				return nil, fmt.Errorf("polygon %d references vertex %d, mesh has %d", pi, vi, len(m.Vertices))
			}
		}

		verts := make([]int, len(poly))
		for i, vi := range poly {
			verts[i] = int(vi)
		}

		// Planar winding and convexity over the movement plane (XZ).
		area := float32(0)
		for i := range verts {
			a := m.Vertices[verts[i]]
			b := m.Vertices[verts[(i+1)%len(verts)]]
			area += a.X()*b.Z() - b.X()*a.Z()
		}
		area /= 2
		if area > -1e-6 && area < 1e-6 {
			return nil, fmt.Errorf("polygon %d is degenerate", pi)
		}
		if area > 0 {
			// Positive shoelace over (x, z) is clockwise seen from +Y.
			return nil, fmt.Errorf("polygon %d is wound clockwise", pi)
		}
		for i := range verts {
			a := m.Vertices[verts[i]]
			b := m.Vertices[verts[(i+1)%len(verts)]]
			c := m.Vertices[verts[(i+2)%len(verts)]]
			cross := (b.X()-a.X())*(c.Z()-b.Z()) - (b.Z()-a.Z())*(c.X()-b.X())
			if cross > 1e-6 {
				return nil, fmt.Errorf("polygon %d is not convex at vertex %d", pi, verts[(i+1)%len(verts)])
			}
		}

		bounds := AABB{Min: m.Vertices[verts[0]], Max: m.Vertices[verts[0]]}
		center := mgl32.Vec3{}
		for _, vi := range verts {
			v := m.Vertices[vi]
			bounds = bounds.Union(AABB{Min: v, Max: v})
			center = center.Add(v)
		}
		center = center.Mul(1 / float32(len(verts)))

		valid.Polygons[pi] = ValidPolygon{Vertices: verts, Bounds: bounds, Center: center}

		for i := range verts {
			a := uint64(verts[i])
			b := uint64(verts[(i+1)%len(verts)])
			key := edgeKey{min(a, b), max(a, b)}
			edgeOwners[key] = append(edgeOwners[key], MeshEdge{Polygon: pi, Edge: i})
		}
	}

	for key, owners := range edgeOwners {
		switch len(owners) {
		case 1:
			valid.BoundaryEdges = append(valid.BoundaryEdges, owners[0])
		case 2:
			a, b := owners[0], owners[1]
			valid.Connectivity[a.Polygon] = append(valid.Connectivity[a.Polygon], Connection{Edge: a.Edge, Neighbor: b.Polygon})
			valid.Connectivity[b.Polygon] = append(valid.Connectivity[b.Polygon], Connection{Edge: b.Edge, Neighbor: a.Polygon})
		default:
			return nil, fmt.Errorf("edge %d-%d is shared by %d polygons", key.a, key.b, len(owners))
		}
	}

	valid.Bounds = valid.Polygons[0].Bounds
	for _, poly := range valid.Polygons[1:] {
		valid.Bounds = valid.Bounds.Union(poly.Bounds)
	}

	valid.sortDerived()
	return valid, nil
}

// sortDerived pins a canonical order on the map-derived slices so encoding
// the same mesh twice yields the same blob.
func (m *ValidNavigationMesh) sortDerived() {
	for _, conns := range m.Connectivity {
		sort.Slice(conns, func(i, j int) bool { return conns[i].Edge < conns[j].Edge })
	}
	sort.Slice(m.BoundaryEdges, func(i, j int) bool {
		a, b := m.BoundaryEdges[i], m.BoundaryEdges[j]
		if a.Polygon != b.Polygon {
			return a.Polygon < b.Polygon
		}
		return a.Edge < b.Edge
	})
}

// neighborAcross returns the polygon on the other side of the given edge, or
// -1 on a boundary.
func (m *ValidNavigationMesh) neighborAcross(polygon, edge int) int {
	for _, conn := range m.Connectivity[polygon] {
		if conn.Edge == edge {
			return conn.Neighbor
		}
	}
	return -1
}

// edgeVertices returns the two endpoints of a polygon edge.
func (m *ValidNavigationMesh) edgeVertices(polygon, edge int) (mgl32.Vec3, mgl32.Vec3) {
	verts := m.Polygons[polygon].Vertices
	return m.Vertices[verts[edge]], m.Vertices[verts[(edge+1)%len(verts)]]
}

// Encode serializes the validated mesh into the opaque row blob.
func (m *ValidNavigationMesh) Encode() ([]byte, error) {
	return msgpack.Marshal(m)
}

func DecodeValidNavigationMesh(data []byte) (*ValidNavigationMesh, error) {
	var m ValidNavigationMesh
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode navmesh: %w", err)
	}
	return &m, nil
}

// ImportNavMesh validates the external mesh and persists the validated blob
// with its transform. Validation happens here, once.
func ImportNavMesh(ctx *Context, worldID uint64, external ExternalNavMesh) (NavMesh, error) {
	valid, err := external.Validate()
	if err != nil {
		return NavMesh{}, fmt.Errorf("import navmesh: %w", err)
	}
	data, err := valid.Encode()
	if err != nil {
		return NavMesh{}, fmt.Errorf("import navmesh: %w", err)
	}
	row := NavMesh{
		WorldID:     worldID,
		Translation: external.Translation,
		Rotation:    external.Rotation,
		Data:        data,
	}
	return ctx.Db.NavMeshes.Insert(row), nil
}

// ReimportNavMesh replaces the mesh stored under navMeshID with a freshly
// validated one.
func ReimportNavMesh(ctx *Context, navMeshID uint64, external ExternalNavMesh) (NavMesh, error) {
	row, ok := ctx.Db.NavMeshes.Find(navMeshID)
	if !ok {
		return NavMesh{}, fmt.Errorf("reimport navmesh: mesh %d not found", navMeshID)
	}
	valid, err := external.Validate()
	if err != nil {
		return NavMesh{}, fmt.Errorf("reimport navmesh: %w", err)
	}
	data, err := valid.Encode()
	if err != nil {
		return NavMesh{}, fmt.Errorf("reimport navmesh: %w", err)
	}
	row.Translation = external.Translation
	row.Rotation = external.Rotation
	row.Data = data
	return ctx.Db.NavMeshes.Update(row), nil
}
