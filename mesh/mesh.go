// Package mesh implements GlobalSimplexMesh: the distributed D-simplex
// element array, its attached vertex/element data, and the operations that
// redistribute it and build a per-rank local view.
package mesh

import (
	"fmt"

	"github.com/notargets/simplexmesh/distribution"
	"github.com/notargets/simplexmesh/meshdata"
	"github.com/notargets/simplexmesh/parallel"
	"github.com/notargets/simplexmesh/simplex"
)

// Config configures a new GlobalSimplexMesh via a plain options struct,
// passed by value to New.
type Config struct {
	// Elements is this rank's owned D-simplices. Every element must have
	// the same dimension; D is inferred from Elements[0] when Elements is
	// non-empty.
	Elements []simplex.Simplex

	// Dim supplies D when this rank legitimately owns zero elements (an
	// uneven element-to-rank distribution is not itself an error). Ignored
	// when Elements is non-empty.
	Dim int

	// VertexData is optional per-vertex attached data, keyed by a global
	// contiguous vertex id. Its Len() fixes the vertex count used to build
	// vtxdist.
	VertexData meshdata.AttachedData

	// ElementData is optional per-element attached data, keyed by position
	// in Elements.
	ElementData meshdata.AttachedData

	// Group is the process group this mesh's collectives run on.
	Group parallel.Group
}

// GlobalSimplexMesh owns a distributed array of D-simplices plus optional
// attached vertex/element data. Mutating operations (Repartition,
// RepartitionByHash) replace the local element array and element data in
// place; BuildLocalMesh leaves the receiver's own elements and data
// unchanged but hash-repartitions any attached boundary meshes.
type GlobalSimplexMesh struct {
	dim   int
	group parallel.Group

	elems       []simplex.Simplex
	elementData meshdata.AttachedData
	vertexData  meshdata.AttachedData
	vtxdist     distribution.SortedDistribution

	isHashPartitioned bool

	// boundaryMeshes holds, for dimensions 1..dim-1, an optional boundary
	// mesh whose element data supplies facet/edge data at local face
	// extraction time.
	boundaryMeshes map[int]*GlobalSimplexMesh
}

// New constructs a GlobalSimplexMesh from cfg. It panics if elements have
// inconsistent dimension, or any element appears more than once locally
// with the same vertex set. A rank owning zero elements is not itself an
// error; it must supply cfg.Dim instead of relying on inference from
// Elements[0].
func New(cfg Config) *GlobalSimplexMesh {
	if cfg.Group == nil {
		panic("mesh: New requires a non-nil process group")
	}
	dim := cfg.Dim
	if len(cfg.Elements) > 0 {
		dim = cfg.Elements[0].Dim()
	}
	seen := make(map[string]struct{}, len(cfg.Elements))
	for _, e := range cfg.Elements {
		if e.Dim() != dim {
			panic(fmt.Sprintf("mesh: inconsistent element dimension: got %d, want %d", e.Dim(), dim))
		}
		k := e.Key()
		if _, dup := seen[k]; dup {
			panic(fmt.Sprintf("mesh: duplicate element %v on this rank", e))
		}
		seen[k] = struct{}{}
	}

	m := &GlobalSimplexMesh{
		dim:            dim,
		group:          cfg.Group,
		elems:          append([]simplex.Simplex(nil), cfg.Elements...),
		elementData:    cfg.ElementData,
		vertexData:     cfg.VertexData,
		boundaryMeshes: make(map[int]*GlobalSimplexMesh),
	}
	if cfg.VertexData != nil {
		m.vtxdist = distribution.Make(uint64(cfg.VertexData.Len()), m.group.AllGather)
	}
	return m
}

// Dim returns D, the element dimension.
func (m *GlobalSimplexMesh) Dim() int { return m.dim }

// Elements returns this rank's currently owned elements. Callers must not
// mutate the returned slice.
func (m *GlobalSimplexMesh) Elements() []simplex.Simplex { return m.elems }

// NumElements returns len(Elements()).
func (m *GlobalSimplexMesh) NumElements() int { return len(m.elems) }

// Group returns the process group this mesh communicates on.
func (m *GlobalSimplexMesh) Group() parallel.Group { return m.group }

// ElementData returns the currently attached per-element data, or nil.
func (m *GlobalSimplexMesh) ElementData() meshdata.AttachedData { return m.elementData }

// VertexData returns the currently attached per-vertex data, or nil.
func (m *GlobalSimplexMesh) VertexData() meshdata.AttachedData { return m.vertexData }

// SetBoundaryMesh attaches a boundary mesh of dimension d, 0 < d < D,
// transferring ownership to the parent. At most one boundary mesh may be
// attached per dimension.
func (m *GlobalSimplexMesh) SetBoundaryMesh(d int, boundary *GlobalSimplexMesh) {
	if d <= 0 || d >= m.dim {
		panic(fmt.Sprintf("mesh: SetBoundaryMesh requires 0 < d < %d, got %d", m.dim, d))
	}
	if boundary.dim != d {
		panic(fmt.Sprintf("mesh: boundary mesh dimension %d does not match requested %d", boundary.dim, d))
	}
	m.boundaryMeshes[d] = boundary
}

// localIndexMap returns a global-simplex-to-local-index lookup over this
// rank's owned elements, used by boundary-mesh face lookup during local
// face extraction.
func (m *GlobalSimplexMesh) localIndexMap() map[string]int {
	g2l := make(map[string]int, len(m.elems))
	for i, e := range m.elems {
		g2l[e.Key()] = i
	}
	return g2l
}
