package mesh

import (
	"sort"

	"github.com/notargets/simplexmesh/distribution"
	"github.com/notargets/simplexmesh/localfaces"
	"github.com/notargets/simplexmesh/meshdata"
	"github.com/notargets/simplexmesh/parallel"
	"github.com/notargets/simplexmesh/simplex"
)

// LocalSimplexMesh is the per-rank local view BuildLocalMesh produces: one
// localfaces.LocalFaces per dimension 0..D, built fresh each call and
// never mutated afterward.
type LocalSimplexMesh struct {
	dim   int
	faces []*localfaces.LocalFaces
}

// Dim returns D.
func (lm *LocalSimplexMesh) Dim() int { return lm.dim }

// Faces returns the local face list for dimension d, 0 <= d <= Dim().
func (lm *LocalSimplexMesh) Faces(d int) *localfaces.LocalFaces { return lm.faces[d] }

// BuildLocalMesh grows the ghost layer by overlap, then extracts a
// LocalFaces for every dimension 0..D. It leaves m's own elements and data
// unchanged; any attached boundary mesh is hash-repartitioned in place.
func (m *GlobalSimplexMesh) BuildLocalMesh(overlap int) *LocalSimplexMesh {
	if overlap < 0 {
		panic("mesh: BuildLocalMesh requires overlap >= 0")
	}

	owned := append([]simplex.Simplex(nil), m.elems...)
	simplex.SortSimplices(owned)

	elmdist := distribution.Make(uint64(len(owned)), m.group.AllGather)
	base := elmdist[m.group.Rank()]
	gids0 := make([]uint64, len(owned))
	for i := range gids0 {
		gids0[i] = base + uint64(i)
	}

	ek, gidsK := m.growGhosts(owned, gids0, overlap)

	faces := make([]*localfaces.LocalFaces, m.dim+1)
	faces[m.dim] = localfaces.New(m.dim, ek, gidsK)

	for d := m.dim - 1; d >= 0; d-- {
		faces[d] = m.extractSubFaces(d, ek)
	}

	return &LocalSimplexMesh{dim: m.dim, faces: faces}
}

// extractSubFaces handles 0 <= d < D: the distinct d-faces of ek are sent
// to their hash owner, who assigns each a contiguous GID (offset by a scan
// over owned distinct counts) and replies with the GID plus the
// shared-ranks table; vertex data (d == 0) or a boundary mesh (0 < d < D)
// is redistributed back alongside.
func (m *GlobalSimplexMesh) extractSubFaces(d int, ek []simplex.Simplex) *localfaces.LocalFaces {
	localSet := distinctDownward(ek, d)
	owner := m.ownerFunc(d)

	sendCounts, order := groupSimplicesByOwner(localSet, owner, m.group.Size())
	sentFaces := make([]simplex.Simplex, len(order))
	for i, idx := range order {
		sentFaces[i] = localSet[idx]
	}

	a2a := parallel.New(m.group, sendCounts)
	width := d + 1
	requestedFaces := exchangeSimplices(a2a, sentFaces, width)
	origRecvCounts := append([]int(nil), a2a.RecvCounts()...)
	origRecvDispls := prefixDispls(origRecvCounts)

	distinct := distinctSortedCopy(requestedFaces)
	offset := m.group.Scan(uint64(len(distinct))) - uint64(len(distinct))
	gidOf := make(map[string]uint64, len(distinct))
	for i, f := range distinct {
		gidOf[f.Key()] = offset + uint64(i)
	}

	requestedGIDs := make([]uint64, len(requestedFaces))
	for i, f := range requestedFaces {
		requestedGIDs[i] = gidOf[f.Key()]
	}

	rd := a2a.RDispls()
	sendersByFace := make(map[string][]int32, len(distinct))
	for i, f := range requestedFaces {
		k := f.Key()
		p := int32(rd[i].Peer)
		if !containsInt32(sendersByFace[k], p) {
			sendersByFace[k] = append(sendersByFace[k], p)
		}
	}
	for k, ps := range sendersByFace {
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
		sendersByFace[k] = ps
	}

	replyCounts := make([]int, len(requestedFaces))
	sharedSendCounts := make([]int, m.group.Size())
	sharedFlat := make([]int32, 0)
	for p := 0; p < m.group.Size(); p++ {
		start := origRecvDispls[p]
		end := start + origRecvCounts[p]
		for i := start; i < end; i++ {
			ranks := sendersByFace[requestedFaces[i].Key()]
			replyCounts[i] = len(ranks)
			sharedSendCounts[p] += len(ranks)
			sharedFlat = append(sharedFlat, ranks...)
		}
	}

	a2a.Swap()
	gids := a2a.ExchangeUint64(requestedGIDs)
	requesterSharedCounts := a2a.ExchangeInt(replyCounts)

	var faceData meshdata.AttachedData
	if d == 0 && m.vertexData != nil {
		permutation := make([]uint64, len(requestedFaces))
		for i, f := range requestedFaces {
			permutation[i] = m.vtxdist.LocalIndex(f.Vertices()[0])
		}
		faceData = m.vertexData.Redistribute(permutation, a2a)
	}

	if 0 < d && d < m.dim {
		if boundary, ok := m.boundaryMeshes[d]; ok {
			boundary.RepartitionByHash()
			g2l := boundary.localIndexMap()
			permutation := make([]uint64, len(requestedFaces))
			for i, f := range requestedFaces {
				if localIdx, found := g2l[f.Key()]; found {
					permutation[i] = uint64(localIdx)
				} else {
					permutation[i] = meshdata.Unset
				}
			}
			if boundary.elementData != nil {
				faceData = boundary.elementData.Redistribute(permutation, a2a)
			}
		}
	}

	a2aShared := parallel.New(m.group, sharedSendCounts)
	sharedRecv := a2aShared.Exchange(int32sToBytes(sharedFlat), 4)
	sharedRecvFlat := bytesToInt32s(sharedRecv)

	flat := make([]int32, 0, len(sharedRecvFlat))
	displ := make([]int32, len(sentFaces))
	pos := 0
	for i := range sentFaces {
		displ[i] = int32(pos)
		n := requesterSharedCounts[i]
		flat = append(flat, sharedRecvFlat[pos:pos+n]...)
		pos += n
	}

	lf := localfaces.New(d, sentFaces, gids)
	lf.SetSharedRanks(flat, displ)
	if faceData != nil {
		lf.SetData(faceData)
	}
	return lf
}

// distinctDownward enumerates the distinct d-faces (d < ek[0].Dim()) of
// every element in ek, in canonical simplex order.
func distinctDownward(ek []simplex.Simplex, d int) []simplex.Simplex {
	seen := make(map[string]simplex.Simplex)
	for _, e := range ek {
		for _, f := range e.Downward(d) {
			seen[f.Key()] = f
		}
	}
	out := make([]simplex.Simplex, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}
	simplex.SortSimplices(out)
	return out
}

// distinctSortedCopy sorts a copy of faces by canonical order and removes
// duplicates.
func distinctSortedCopy(faces []simplex.Simplex) []simplex.Simplex {
	cp := append([]simplex.Simplex(nil), faces...)
	simplex.SortSimplices(cp)
	out := cp[:0:0]
	for i, f := range cp {
		if i == 0 || !f.Equal(out[len(out)-1]) {
			out = append(out, f)
		}
	}
	return out
}

// groupSimplicesByOwner buckets faces by owner(face) and returns the
// per-rank send counts plus a permutation of faces' indices grouped by
// destination rank ascending, the order AllToAllV.Exchange expects.
func groupSimplicesByOwner(faces []simplex.Simplex, owner simplex.OwnerFunc, procs int) (sendCounts []int, order []int) {
	sendCounts = make([]int, procs)
	buckets := make([][]int, procs)
	for i, f := range faces {
		p := owner(f)
		sendCounts[p]++
		buckets[p] = append(buckets[p], i)
	}
	order = make([]int, 0, len(faces))
	for p := 0; p < procs; p++ {
		order = append(order, buckets[p]...)
	}
	return sendCounts, order
}

func prefixDispls(counts []int) []int {
	d := make([]int, len(counts))
	total := 0
	for i, c := range counts {
		d[i] = total
		total += c
	}
	return d
}

func containsInt32(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func int32sToBytes(v []int32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		u := uint32(x)
		out[i*4] = byte(u >> 24)
		out[i*4+1] = byte(u >> 16)
		out[i*4+2] = byte(u >> 8)
		out[i*4+3] = byte(u)
	}
	return out
}

func bytesToInt32s(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		u := uint32(b[i*4])<<24 | uint32(b[i*4+1])<<16 | uint32(b[i*4+2])<<8 | uint32(b[i*4+3])
		out[i] = int32(u)
	}
	return out
}
