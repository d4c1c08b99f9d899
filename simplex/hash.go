package simplex

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// maxDim bounds the per-dimension domain-separation keys precomputed below.
// Meshes in this library go up to D=3 (tetrahedra); a handful of spare
// dimensions are kept so Downward<k> chains never run out of keys.
const maxDim = 8

// dimKeys are BLAKE3 keys, one per simplex dimension, giving H_0..H_maxDim
// domain separation so the same vertex-id bytes hash differently depending
// on whether they're being hashed as a vertex, edge, face, etc. Without
// this, a vertex id occurring verbatim in Simplex<0> and as one of several
// ids in a higher-dimension simplex could collide spuriously across
// dimensions that are never compared against each other anyway, but keeping
// the domains separate costs nothing and matches the keyed-hash domain
// separation pattern used elsewhere in the ecosystem for exactly this
// reason.
var dimKeys = func() [maxDim + 1][32]byte {
	var keys [maxDim + 1][32]byte
	for d := 0; d <= maxDim; d++ {
		copy(keys[d][:], "simplexmesh.Hd.")
		keys[d][31] = byte(d)
	}
	return keys
}()

// Hash returns H_d(s): a commutative mixing of s's vertex ids such that any
// permutation of the same vertex set yields the same value. Because s's
// vertex tuple is already canonicalized to sorted order at construction,
// hashing the sorted byte representation directly gives order independence
// for free — no separate commutative mixing step is needed on top.
func (s Simplex) Hash() uint64 {
	d := s.dim
	if d > maxDim {
		d = maxDim
	}
	h, err := blake3.NewKeyed(dimKeys[d][:])
	if err != nil {
		panic(err)
	}
	buf := make([]byte, 8)
	for _, v := range s.verts {
		binary.BigEndian.PutUint64(buf, v)
		_, _ = h.Write(buf)
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// OwnerFunc maps a simplex to the rank that rendezvouses all references to
// it: its "hash owner". For d==0 this is usually built from a vertex
// distribution (see distribution.RankOf) rather than from HashOwner below,
// since a vertex's owner should agree with wherever it already lives; for
// d>0 it is H_d(s) mod procs.
type OwnerFunc func(s Simplex) int

// HashOwner returns the owner-by-hash rule for dimension d>0: H_d(s) mod
// procs.
func HashOwner(procs int) OwnerFunc {
	if procs <= 0 {
		panic("simplex: HashOwner requires procs > 0")
	}
	return func(s Simplex) int {
		return int(s.Hash() % uint64(procs))
	}
}
