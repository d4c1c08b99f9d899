// Package simplex defines the Simplex<d> value type: an unordered set of
// d+1 vertex ids with order-independent identity and hashing.
package simplex

import (
	"fmt"
	"sort"
)

// Simplex is a D-simplex: an unordered set of Dim()+1 vertex ids, stored
// canonicalized to sorted order at construction. Simplex holds a slice, so
// it cannot be compared with == or used directly as a map key; use Equal
// for identity and Key for a comparable, order-independent map key.
//
// Vertices (Simplex of dimension 0) are represented the same way, with a
// single-element vertex tuple.
type Simplex struct {
	dim   int
	verts []uint64
}

// New canonicalizes verts into a Simplex of dimension len(verts)-1. It
// panics if verts is empty or contains a duplicate id, since a simplex with
// repeated vertices is a degenerate, non-manifold element.
func New(verts []uint64) Simplex {
	if len(verts) == 0 {
		panic("simplex: cannot construct a simplex with zero vertices")
	}
	v := append([]uint64(nil), verts...)
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	for i := 1; i < len(v); i++ {
		if v[i] == v[i-1] {
			panic(fmt.Sprintf("simplex: duplicate vertex id %d in element %v", v[i], verts))
		}
	}
	return Simplex{dim: len(v) - 1, verts: v}
}

// Dim returns d, the simplex dimension (0 for a vertex, 1 for an edge, ...).
func (s Simplex) Dim() int { return s.dim }

// Vertices returns the canonical, sorted vertex id tuple. The returned
// slice must not be mutated by the caller.
func (s Simplex) Vertices() []uint64 { return s.verts }

// Equal reports whether s and o have the same vertex set.
func (s Simplex) Equal(o Simplex) bool {
	if s.dim != o.dim {
		return false
	}
	for i, v := range s.verts {
		if v != o.verts[i] {
			return false
		}
	}
	return true
}

// Key returns a comparable string suitable for use as a map key. Simplex
// itself cannot be a map key because it holds a slice; Key provides the
// order-independent identity a hash map needs.
func (s Simplex) Key() string {
	// 8 bytes per vertex, big-endian, concatenated in canonical order.
	buf := make([]byte, len(s.verts)*8)
	for i, v := range s.verts {
		putU64(buf[i*8:], v)
	}
	return string(buf)
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// Less gives Simplex values a stable total order by comparing vertex tuples
// lexicographically. Ghost growth and deterministic GID assignment rely on
// this order being consistent across ranks for equal inputs.
func Less(a, b Simplex) bool {
	n := len(a.verts)
	if len(b.verts) < n {
		n = len(b.verts)
	}
	for i := 0; i < n; i++ {
		if a.verts[i] != b.verts[i] {
			return a.verts[i] < b.verts[i]
		}
	}
	return len(a.verts) < len(b.verts)
}

// SortSimplices sorts a slice of Simplex values in place using Less.
func SortSimplices(s []Simplex) {
	sort.Slice(s, func(i, j int) bool { return Less(s[i], s[j]) })
}

// Downward enumerates the distinct k-faces (k < Dim()) contained in s, i.e.
// every (k+1)-subset of s's vertices, in lexicographic vertex-index order.
func (s Simplex) Downward(k int) []Simplex {
	if k < 0 || k >= s.dim {
		panic(fmt.Sprintf("simplex: downward<%d> invalid for a %d-simplex", k, s.dim))
	}
	width := k + 1
	combos := combinations(len(s.verts), width)
	out := make([]Simplex, len(combos))
	for i, idx := range combos {
		verts := make([]uint64, width)
		for j, vi := range idx {
			verts[j] = s.verts[vi]
		}
		// Already sorted since idx is increasing over a sorted slice.
		out[i] = Simplex{dim: k, verts: verts}
	}
	return out
}

// combinations returns every increasing width-length index tuple drawn from
// [0, n), in lexicographic order.
func combinations(n, width int) [][]int {
	if width <= 0 || width > n {
		return nil
	}
	var out [][]int
	idx := make([]int, width)
	for i := range idx {
		idx[i] = i
	}
	for {
		out = append(out, append([]int(nil), idx...))
		// Advance to the next combination.
		i := width - 1
		for i >= 0 && idx[i] == n-width+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < width; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

// String renders s as its vertex tuple, for diagnostics and panic messages.
func (s Simplex) String() string {
	return fmt.Sprintf("%v", s.verts)
}
