package mesh

import (
	"testing"

	"github.com/notargets/simplexmesh/meshdata"
	"github.com/notargets/simplexmesh/parallel"
	"github.com/notargets/simplexmesh/simplex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tri(a, b, c uint64) simplex.Simplex { return simplex.New([]uint64{a, b, c}) }

func TestNewPanicsOnDuplicateElement(t *testing.T) {
	groups := parallel.NewLocalGroup(1)
	assert.Panics(t, func() {
		New(Config{Elements: []simplex.Simplex{tri(0, 1, 2), tri(0, 1, 2)}, Group: groups[0]})
	})
}

func TestNewPanicsOnInconsistentDimension(t *testing.T) {
	groups := parallel.NewLocalGroup(1)
	assert.Panics(t, func() {
		New(Config{
			Elements: []simplex.Simplex{tri(0, 1, 2), simplex.New([]uint64{0, 1})},
			Group:    groups[0],
		})
	})
}

func TestNewAllowsZeroElementsWithExplicitDim(t *testing.T) {
	groups := parallel.NewLocalGroup(1)
	m := New(Config{Dim: 2, Group: groups[0]})
	assert.Equal(t, 2, m.Dim())
	assert.Equal(t, 0, m.NumElements())
}

func TestSetBoundaryMeshPanicsOnBadDimension(t *testing.T) {
	groups := parallel.NewLocalGroup(1)
	m := New(Config{Elements: []simplex.Simplex{tri(0, 1, 2)}, Group: groups[0]})
	boundary := New(Config{Elements: []simplex.Simplex{simplex.New([]uint64{0, 1})}, Group: groups[0]})
	assert.Panics(t, func() { m.SetBoundaryMesh(0, boundary) })
	assert.Panics(t, func() { m.SetBoundaryMesh(2, boundary) })
}

// TestSingleTriangleOneRank checks that one triangle on one rank, at
// overlap 0, yields exactly 1 triangle, 3 edges, 3 vertices, no shared
// ranks beyond itself.
func TestSingleTriangleOneRank(t *testing.T) {
	groups := parallel.NewLocalGroup(1)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		m := New(Config{Elements: []simplex.Simplex{tri(0, 1, 2)}, Group: g})
		lm := m.BuildLocalMesh(0)

		require.Equal(t, 1, lm.Faces(2).Len())
		require.Equal(t, 3, lm.Faces(1).Len())
		require.Equal(t, 3, lm.Faces(0).Len())

		seen := map[uint64]bool{}
		for i := 0; i < lm.Faces(2).Len(); i++ {
			seen[lm.Faces(2).GID(i)] = true
		}
		assert.Len(t, seen, 1)

		for d := 0; d < 2; d++ {
			for i := 0; i < lm.Faces(d).Len(); i++ {
				assert.Equal(t, []int32{0}, lm.Faces(d).SharedRanks(i), "dim %d face %d", d, i)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// TestTwoTrianglesSharingEdge checks that with rank0 owning (0,1,2) and
// rank1 owning (0,1,3), at overlap=0 each rank's shared edge (0,1) reports
// the other rank in its shared-ranks table.
func TestTwoTrianglesSharingEdge(t *testing.T) {
	groups := parallel.NewLocalGroup(2)
	sharedOf := make([][]int32, 2)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		var owned []simplex.Simplex
		if g.Rank() == 0 {
			owned = []simplex.Simplex{tri(0, 1, 2)}
		} else {
			owned = []simplex.Simplex{tri(0, 1, 3)}
		}
		m := New(Config{Elements: owned, Group: g})
		lm := m.BuildLocalMesh(0)

		edges := lm.Faces(1)
		shared01 := simplex.New([]uint64{0, 1})
		for i := 0; i < edges.Len(); i++ {
			if edges.Element(i).Equal(shared01) {
				sharedOf[g.Rank()] = edges.SharedRanks(i)
			}
		}
		return nil
	})
	require.NoError(t, err)

	require.NotNil(t, sharedOf[0])
	require.NotNil(t, sharedOf[1])
	assert.Contains(t, sharedOf[0], int32(1))
	assert.Contains(t, sharedOf[1], int32(0))
}

// TestTwoTrianglesOverlapOne checks that the same two-triangle setup as
// TestTwoTrianglesSharingEdge, but with overlap=1, grows both ranks to
// hold both triangles.
func TestTwoTrianglesOverlapOne(t *testing.T) {
	groups := parallel.NewLocalGroup(2)
	counts := make([]int, 2)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		var owned []simplex.Simplex
		if g.Rank() == 0 {
			owned = []simplex.Simplex{tri(0, 1, 2)}
		} else {
			owned = []simplex.Simplex{tri(0, 1, 3)}
		}
		m := New(Config{Elements: owned, Group: g})
		lm := m.BuildLocalMesh(1)
		counts[g.Rank()] = lm.Faces(2).Len()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, counts)
}

// TestFanOfFourTrianglesGrowsToFullSetAtOverlapOne checks a 4-triangle mesh
// split across 2 ranks such that each rank's two elements are adjacent to
// the other rank's two elements across three distinct cut faces. A single
// ghost layer must pull in every element not already owned.
func TestFanOfFourTrianglesGrowsToFullSetAtOverlapOne(t *testing.T) {
	// A fan of 4 triangles sharing apex vertex 0, base vertices 1..5:
	// T0=(0,1,2), T1=(0,2,3), T2=(0,3,4), T3=(0,4,5). Consecutive
	// triangles share an edge through the apex (0,2), (0,3), (0,4).
	// Splitting alternately (rank0={T0,T2}, rank1={T1,T3}) puts every
	// owned element face-adjacent to an element on the other rank.
	fan := []simplex.Simplex{
		tri(0, 1, 2),
		tri(0, 2, 3),
		tri(0, 3, 4),
		tri(0, 4, 5),
	}
	groups := parallel.NewLocalGroup(2)
	counts := make([]int, 2)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		var owned []simplex.Simplex
		if g.Rank() == 0 {
			owned = []simplex.Simplex{fan[0], fan[2]}
		} else {
			owned = []simplex.Simplex{fan[1], fan[3]}
		}
		m := New(Config{Elements: owned, Group: g})
		lm := m.BuildLocalMesh(1)
		counts[g.Rank()] = lm.Faces(2).Len()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, counts)
}

// TestVertexDataRoundTrip checks that vertex data v -> v*10 reappears,
// keyed by global vertex id, at every local vertex face that references it.
func TestVertexDataRoundTrip(t *testing.T) {
	groups := parallel.NewLocalGroup(2)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		var owned []simplex.Simplex
		if g.Rank() == 0 {
			owned = []simplex.Simplex{tri(0, 1, 2)}
		} else {
			owned = []simplex.Simplex{tri(0, 1, 3)}
		}
		// Global vertex count is 4 (ids 0..3); split 2/2 across ranks so
		// vtxdist = [0, 2, 4].
		var vdata meshdata.AttachedData
		if g.Rank() == 0 {
			vdata = meshdata.NewRowData(2, 1, []float64{0, 10})
		} else {
			vdata = meshdata.NewRowData(2, 1, []float64{20, 30})
		}

		m := New(Config{Elements: owned, VertexData: vdata, Group: g})
		lm := m.BuildLocalMesh(0)

		verts := lm.Faces(0)
		require.NotNil(t, verts.Data())
		for i := 0; i < verts.Len(); i++ {
			vid := verts.Element(i).Vertices()[0]
			row := verts.Data().Row(i)
			require.Len(t, row, 1)
			assert.Equal(t, float64(vid)*10, row[0], "vertex %d", vid)
		}
		return nil
	})
	require.NoError(t, err)
}

// TestBoundaryMeshAttachment checks that a boundary mesh of edges tagged
// (0,1)->100, (1,2)->200 surfaces its tag on any rank whose local
// edge-face list holds one of those edges, and the unset sentinel on edges
// with no tag.
func TestBoundaryMeshAttachment(t *testing.T) {
	edge01 := simplex.New([]uint64{0, 1})
	edge12 := simplex.New([]uint64{1, 2})
	edge13 := simplex.New([]uint64{1, 3})

	groups := parallel.NewLocalGroup(2)
	tagOf := make([]map[string]float64, 2)
	unsetOf := make([]map[string]bool, 2)
	err := parallel.Run(groups, func(g *parallel.LocalGroup) error {
		var owned []simplex.Simplex
		if g.Rank() == 0 {
			owned = []simplex.Simplex{tri(0, 1, 2)}
		} else {
			owned = []simplex.Simplex{tri(0, 1, 3)}
		}
		m := New(Config{Elements: owned, Group: g})

		// Only rank 0 owns boundary-tagged edges locally; every rank must
		// still construct and attach a (possibly empty) boundary mesh since
		// the hash-repartition BuildLocalMesh applies to it is collective.
		var boundaryElems []simplex.Simplex
		boundaryData := meshdata.NewRowData(0, 1, nil)
		if g.Rank() == 0 {
			boundaryElems = []simplex.Simplex{edge01, edge12}
			boundaryData = meshdata.NewRowData(2, 1, []float64{100, 200})
		}
		boundary := New(Config{Elements: boundaryElems, Dim: 1, ElementData: boundaryData, Group: g})
		m.SetBoundaryMesh(1, boundary)

		lm := m.BuildLocalMesh(0)
		edges := lm.Faces(1)
		require.NotNil(t, edges.Data())

		tags := make(map[string]float64)
		unset := make(map[string]bool)
		for i := 0; i < edges.Len(); i++ {
			row := edges.Data().Row(i)
			key := edges.Element(i).Key()
			if meshdata.IsUnset(row) {
				unset[key] = true
			} else {
				tags[key] = row[0]
			}
		}
		tagOf[g.Rank()] = tags
		unsetOf[g.Rank()] = unset
		return nil
	})
	require.NoError(t, err)

	// Rank 0 holds edges (0,1) and (1,2) of its own triangle, both tagged.
	assert.Equal(t, float64(100), tagOf[0][edge01.Key()])
	assert.Equal(t, float64(200), tagOf[0][edge12.Key()])

	// Rank 1's triangle (0,1,3) shares edge (0,1) (tagged) but its own
	// edge (1,3) carries no boundary tag.
	assert.Equal(t, float64(100), tagOf[1][edge01.Key()])
	assert.True(t, unsetOf[1][edge13.Key()])
}
