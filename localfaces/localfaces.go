// Package localfaces provides LocalFaces, the pure value container a
// GlobalSimplexMesh builds per dimension during local-mesh construction.
package localfaces

import (
	"github.com/notargets/simplexmesh/meshdata"
	"github.com/notargets/simplexmesh/simplex"
)

// LocalFaces holds, for one dimension d, the distinct local simplices, a
// parallel GID per simplex, a parallel ragged shared-ranks table, and
// optionally attached data in the same order. It is produced fresh by
// every call to a mesh's local-view builder and is never mutated
// afterward by anyone but that builder.
type LocalFaces struct {
	dim int

	elements []simplex.Simplex
	gids     []uint64

	// sharedRanks is the ragged table: sharedRanks[i] lists every rank
	// (including this one) whose local face list also contains
	// elements[i].
	sharedRanksFlat  []int32
	sharedRanksDispl []int32

	data meshdata.AttachedData
}

// New builds a LocalFaces from parallel elements/gids slices of equal
// length. The shared-ranks table and attached data are set later via
// SetSharedRanks/SetData by the mesh builder.
func New(dim int, elements []simplex.Simplex, gids []uint64) *LocalFaces {
	if len(elements) != len(gids) {
		panic("localfaces: elements and gids length mismatch")
	}
	return &LocalFaces{dim: dim, elements: elements, gids: gids}
}

// Dim returns the dimension d this container holds faces for.
func (lf *LocalFaces) Dim() int { return lf.dim }

// Len returns the number of distinct local faces.
func (lf *LocalFaces) Len() int { return len(lf.elements) }

// Element returns the i-th local face's simplex.
func (lf *LocalFaces) Element(i int) simplex.Simplex { return lf.elements[i] }

// Elements returns the full, ordered face list. Callers must not mutate it.
func (lf *LocalFaces) Elements() []simplex.Simplex { return lf.elements }

// GID returns the i-th local face's contiguous global id.
func (lf *LocalFaces) GID(i int) uint64 { return lf.gids[i] }

// GIDs returns the full, parallel GID list. Callers must not mutate it.
func (lf *LocalFaces) GIDs() []uint64 { return lf.gids }

// SharedRanks returns the set of ranks (including this one) whose local
// face list also holds the i-th face.
func (lf *LocalFaces) SharedRanks(i int) []int32 {
	if lf.sharedRanksDispl == nil {
		return nil
	}
	start := lf.sharedRanksDispl[i]
	end := int32(len(lf.sharedRanksFlat))
	if i+1 < len(lf.sharedRanksDispl) {
		end = lf.sharedRanksDispl[i+1]
	}
	return lf.sharedRanksFlat[start:end]
}

// SetSharedRanks installs the ragged shared-ranks table: flat holds every
// rank list concatenated in face order, displ[i] is flat's offset for face
// i. Only the mesh builder calls this.
func (lf *LocalFaces) SetSharedRanks(flat []int32, displ []int32) {
	if len(displ) != len(lf.elements) {
		panic("localfaces: shared-ranks displacement length mismatch")
	}
	lf.sharedRanksFlat = flat
	lf.sharedRanksDispl = displ
}

// Data returns the attached data parallel to Elements, or nil if none was
// attached.
func (lf *LocalFaces) Data() meshdata.AttachedData { return lf.data }

// SetData installs attached data. Only the mesh builder calls this.
func (lf *LocalFaces) SetData(d meshdata.AttachedData) { lf.data = d }
