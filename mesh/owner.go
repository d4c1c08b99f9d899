package mesh

import "github.com/notargets/simplexmesh/simplex"

// ownerFunc returns the hash-owner rule for dimension d: for d==0, the
// unique rank whose vtxdist range contains the vertex id, falling back to
// id mod procs when no vtxdist is available; for d>0, H_d(s) mod procs.
func (m *GlobalSimplexMesh) ownerFunc(d int) simplex.OwnerFunc {
	procs := m.group.Size()
	if d == 0 {
		if len(m.vtxdist) > 0 {
			vtxdist := m.vtxdist
			return func(s simplex.Simplex) int { return vtxdist.RankOf(s.Vertices()[0]) }
		}
		return func(s simplex.Simplex) int { return int(s.Vertices()[0] % uint64(procs)) }
	}
	return simplex.HashOwner(procs)
}
