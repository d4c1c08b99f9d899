package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/simplexmesh/parallel"
	"github.com/notargets/simplexmesh/simplex"
)

// boundaryEntry is one local-boundary (D-1)-face together with the index,
// into the current working (elems, gids) pair, of the single element it
// bounds.
type boundaryEntry struct {
	face    simplex.Simplex
	elemIdx int
}

// growGhosts starts from the owned elements e0 (each already carrying its
// contiguous element GID in the parallel gids0 slice, assigned by the
// caller via a scan over |E0|) and grows the working element set by
// overlap layers of face-adjacent neighbors discovered through a
// hash-owner rendezvous per (D-1)-face. A ghost element's GID rides along
// as ordinary exchange payload, carried from whichever rank owns it — no
// extra round trip is needed to learn it.
func (m *GlobalSimplexMesh) growGhosts(e0 []simplex.Simplex, gids0 []uint64, overlap int) (elems []simplex.Simplex, gids []uint64) {
	elems = append([]simplex.Simplex(nil), e0...)
	gids = append([]uint64(nil), gids0...)
	if overlap == 0 {
		return elems, gids
	}

	faceDim := m.dim - 1
	ownerD1 := m.ownerFunc(faceDim)

	domainBoundaryFaces := make(map[string]struct{})
	haveDomainBoundary := false

	for layer := 1; layer <= overlap; layer++ {
		localBoundary := buildUpwardMap(elems, faceDim)

		if !haveDomainBoundary {
			domainBoundaryFaces = m.filterDomainBoundaryFaces(localBoundary, ownerD1)
			haveDomainBoundary = true
		} else {
			for key := range localBoundary {
				if _, isDomain := domainBoundaryFaces[key]; isDomain {
					delete(localBoundary, key)
				}
			}
		}

		neighborElems, neighborGIDs := m.requestNeighbors(localBoundary, elems, gids, ownerD1)

		elems = append(elems, neighborElems...)
		gids = append(gids, neighborGIDs...)
		elems, gids = dedupeTagged(elems, gids)
	}
	return elems, gids
}

// buildUpwardMap builds the multimap from each faceDim-face of every
// element in elems to the indices of the elements that produced it, then
// immediately erases every face with multiplicity >= 2, leaving only the
// local-boundary (multiplicity-1) faces mapped to their single owning
// element index.
func buildUpwardMap(elems []simplex.Simplex, faceDim int) map[string]*boundaryEntry {
	type multi struct {
		face  simplex.Simplex
		elems []int
	}
	up := make(map[string]*multi)
	for i, e := range elems {
		for _, f := range e.Downward(faceDim) {
			k := f.Key()
			if entry, ok := up[k]; ok {
				entry.elems = append(entry.elems, i)
			} else {
				up[k] = &multi{face: f, elems: []int{i}}
			}
		}
	}
	out := make(map[string]*boundaryEntry, len(up))
	for k, v := range up {
		if len(v.elems) > 2 {
			panic(fmt.Sprintf("mesh: face %v has local multiplicity %d > 2 (non-manifold input)", v.face, len(v.elems)))
		}
		if len(v.elems) == 1 {
			out[k] = &boundaryEntry{face: v.face, elemIdx: v.elems[0]}
		}
	}
	return out
}

// filterDomainBoundaryFaces sends every local-boundary face to its hash
// owner, who counts global multiplicity and replies with the count. Faces
// with count 1 are domain boundaries (erased from localBoundary and
// returned); faces with count 2 are partition-cut faces and remain.
func (m *GlobalSimplexMesh) filterDomainBoundaryFaces(localBoundary map[string]*boundaryEntry, owner simplex.OwnerFunc) map[string]struct{} {
	keys, entries := sortedEntries(localBoundary)
	sendCounts, order := groupByOwner(entries, owner, m.group.Size())

	faces := make([]simplex.Simplex, len(order))
	for i, idx := range order {
		faces[i] = entries[idx].face
	}

	a2a := parallel.New(m.group, sendCounts)
	requestedFaces := exchangeSimplices(a2a, faces, m.dim)

	counts := make(map[string]int, len(requestedFaces))
	for _, f := range requestedFaces {
		counts[f.Key()]++
	}
	requestedFaceCount := make([]int, len(requestedFaces))
	for i, f := range requestedFaces {
		requestedFaceCount[i] = counts[f.Key()]
	}

	a2a.Swap()
	faceCount := a2a.ExchangeInt(requestedFaceCount)

	domainBoundaryFaces := make(map[string]struct{})
	for i, idx := range order {
		c := faceCount[i]
		if c < 1 || c > 2 {
			panic(fmt.Sprintf("mesh: face %v observed multiplicity %d at its hash owner (want 1 or 2)", entries[idx].face, c))
		}
		if c == 1 {
			k := keys[idx]
			domainBoundaryFaces[k] = struct{}{}
			delete(localBoundary, k)
		}
	}
	return domainBoundaryFaces
}

// requestNeighbors sends every surviving (face, elem) pair, tagged with
// elem's GID, to the face's hash owner, who now holds both sides of each
// cut face and replies to each sender with the element (and its GID) on
// the other side.
func (m *GlobalSimplexMesh) requestNeighbors(localBoundary map[string]*boundaryEntry, elems []simplex.Simplex, gids []uint64, owner simplex.OwnerFunc) ([]simplex.Simplex, []uint64) {
	// Every rank must reach the collectives below regardless of whether it
	// has any local-boundary faces of its own: all processes must enter
	// every collective in the same order.
	_, entries := sortedEntries(localBoundary)
	sendCounts, order := groupByOwner(entries, owner, m.group.Size())

	faces := make([]simplex.Simplex, len(order))
	boundaryElems := make([]simplex.Simplex, len(order))
	boundaryGIDs := make([]uint64, len(order))
	for i, idx := range order {
		faces[i] = entries[idx].face
		boundaryElems[i] = elems[entries[idx].elemIdx]
		boundaryGIDs[i] = gids[entries[idx].elemIdx]
	}

	a2a := parallel.New(m.group, sendCounts)
	requestedFaces := exchangeSimplices(a2a, faces, m.dim)
	requestedElems := exchangeSimplices(a2a, boundaryElems, m.dim+1)
	requestedGIDs := a2a.ExchangeUint64(boundaryGIDs)

	groups := make(map[string][]int, len(requestedFaces))
	for i, f := range requestedFaces {
		groups[f.Key()] = append(groups[f.Key()], i)
	}

	oppositeElems := make([]simplex.Simplex, len(requestedElems))
	oppositeGIDs := make([]uint64, len(requestedGIDs))
	for i, f := range requestedFaces {
		g := groups[f.Key()]
		if len(g) != 2 {
			panic(fmt.Sprintf("mesh: cut face %v has %d witnesses at its hash owner (want exactly 2)", f, len(g)))
		}
		other := g[0]
		if other == i {
			other = g[1]
		}
		oppositeElems[i] = requestedElems[other]
		oppositeGIDs[i] = requestedGIDs[other]
	}

	a2a.Swap()
	neighborElems := exchangeSimplices(a2a, oppositeElems, m.dim+1)
	neighborGIDs := a2a.ExchangeUint64(oppositeGIDs)
	return neighborElems, neighborGIDs
}

// sortedEntries returns localBoundary's keys and values in canonical
// simplex order of their faces, so message grouping is deterministic for
// fixed input and process count.
func sortedEntries(m map[string]*boundaryEntry) ([]string, []*boundaryEntry) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return simplex.Less(m[keys[i]].face, m[keys[j]].face)
	})
	entries := make([]*boundaryEntry, len(keys))
	for i, k := range keys {
		entries[i] = m[k]
	}
	return keys, entries
}

// groupByOwner buckets entries by owner(entries[i].face) and returns the
// per-rank send counts plus a permutation of entries' indices grouped by
// destination rank ascending — the order AllToAllV.Exchange expects.
func groupByOwner(entries []*boundaryEntry, owner simplex.OwnerFunc, procs int) (sendCounts []int, order []int) {
	sendCounts = make([]int, procs)
	buckets := make([][]int, procs)
	for i, e := range entries {
		p := owner(e.face)
		sendCounts[p]++
		buckets[p] = append(buckets[p], i)
	}
	order = make([]int, 0, len(entries))
	for p := 0; p < procs; p++ {
		order = append(order, buckets[p]...)
	}
	return sendCounts, order
}

// dedupeTagged sorts (elems, gids) by elems' canonical order and removes
// duplicate elements, keeping the first occurrence's GID.
func dedupeTagged(elems []simplex.Simplex, gids []uint64) ([]simplex.Simplex, []uint64) {
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return simplex.Less(elems[idx[i]], elems[idx[j]]) })

	outElems := make([]simplex.Simplex, 0, len(elems))
	outGIDs := make([]uint64, 0, len(gids))
	for _, i := range idx {
		if len(outElems) > 0 && elems[i].Equal(outElems[len(outElems)-1]) {
			continue
		}
		outElems = append(outElems, elems[i])
		outGIDs = append(outGIDs, gids[i])
	}
	return outElems, outGIDs
}
