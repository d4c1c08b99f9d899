package simplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCanonicalizesOrder(t *testing.T) {
	a := New([]uint64{3, 1, 2})
	b := New([]uint64{1, 2, 3})
	assert.True(t, a.Equal(b))
	assert.Equal(t, []uint64{1, 2, 3}, a.Vertices())
}

func TestNewPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() { New([]uint64{1, 2, 1}) })
}

func TestHashIsOrderIndependent(t *testing.T) {
	a := New([]uint64{7, 3, 9, 1})
	b := New([]uint64{1, 9, 3, 7})
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashDiffersAcrossDimension(t *testing.T) {
	vertex := New([]uint64{5})
	edge := New([]uint64{5, 6})
	assert.NotEqual(t, vertex.Hash(), edge.Hash())
}

func TestDownwardEdgesOfTriangle(t *testing.T) {
	tri := New([]uint64{2, 0, 1})
	edges := tri.Downward(1)
	require.Len(t, edges, 3)
	want := []Simplex{New([]uint64{0, 1}), New([]uint64{0, 2}), New([]uint64{1, 2})}
	for i, w := range want {
		assert.True(t, edges[i].Equal(w), "edge %d: got %v want %v", i, edges[i], w)
	}
}

func TestDownwardVerticesOfTriangle(t *testing.T) {
	tri := New([]uint64{2, 0, 1})
	verts := tri.Downward(0)
	require.Len(t, verts, 3)
	for i, id := range []uint64{0, 1, 2} {
		assert.Equal(t, id, verts[i].Vertices()[0])
	}
}

func TestDownwardFacesOfTetrahedron(t *testing.T) {
	tet := New([]uint64{0, 1, 2, 3})
	faces := tet.Downward(2)
	require.Len(t, faces, 4)
	for _, f := range faces {
		assert.Equal(t, 2, f.Dim())
	}
}

func TestKeyRoundTrips(t *testing.T) {
	a := New([]uint64{4, 2})
	b := New([]uint64{2, 4})
	assert.Equal(t, a.Key(), b.Key())

	c := New([]uint64{2, 5})
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestHashOwnerRange(t *testing.T) {
	owner := HashOwner(4)
	s := New([]uint64{10, 20, 30})
	r := owner(s)
	assert.GreaterOrEqual(t, r, 0)
	assert.Less(t, r, 4)
}
