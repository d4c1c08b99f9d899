package mesh

import "github.com/notargets/simplexmesh/distribution"

// CSR is the distributed compressed-sparse-row export a graph partitioner
// consumes: dist is the element-count prefix sum across ranks, rowPtr has
// stride D+1 (every element has the same number of vertices), colInd is
// the concatenated vertex ids in element order.
//
// The integer width of rowPtr/colInd is int32 to match go-metis's idx_t,
// which is the only partitioner this module wires in. A CSR of a different
// integer width is a different exported type, not a type parameter, so a
// caller needing int64 column indices can add one without touching this
// one.
type CSR struct {
	Dist   distribution.SortedDistribution
	RowPtr []int32
	ColInd []int32
}

// DistributedCSR builds the distributed CSR view of m's currently owned
// elements.
func (m *GlobalSimplexMesh) DistributedCSR() CSR {
	dist := distribution.Make(uint64(len(m.elems)), m.group.AllGather)

	n := len(m.elems)
	rowPtr := make([]int32, n+1)
	colInd := make([]int32, 0, n*(m.dim+1))

	var ind int32
	for i, e := range m.elems {
		rowPtr[i] = ind
		for _, v := range e.Vertices() {
			colInd = append(colInd, int32(v))
			ind++
		}
	}
	rowPtr[n] = ind

	return CSR{Dist: dist, RowPtr: rowPtr, ColInd: colInd}
}
