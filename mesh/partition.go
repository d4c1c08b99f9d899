package mesh

import (
	"fmt"
	"sort"

	metis "github.com/notargets/go-metis"
	"github.com/notargets/simplexmesh/parallel"
	"github.com/notargets/simplexmesh/simplex"
)

// GraphPartitioner is an external collaborator: a function from a
// distributed CSR and a target rank count to a target rank per local
// element. GlobalSimplexMesh treats it as a black box.
type GraphPartitioner interface {
	Partition(csr CSR, nparts int) ([]int32, error)
}

// MetisPartitioner wraps github.com/notargets/go-metis's serial k-way graph
// partitioner (METIS's PartGraphKway, in its usual idx_t-based C ABI) and
// applies it rank-locally: every rank partitions its own element-adjacency
// graph built from shared vertex ids, each rank contributing one CSR row
// block. It does not attempt to reimplement ParMETIS's distributed k-way
// algorithm.
type MetisPartitioner struct {
	// Ncon is the number of balancing constraints per vertex; 1 is the
	// common case (balance element count only).
	Ncon int32
}

// Partition implements GraphPartitioner.
func (p MetisPartitioner) Partition(csr CSR, nparts int) ([]int32, error) {
	n := len(csr.RowPtr) - 1
	if n == 0 {
		return nil, nil
	}
	ncon := p.Ncon
	if ncon <= 0 {
		ncon = 1
	}
	xadj, adjncy := elementAdjacency(csr)

	options := metis.NewOptions()
	_, part, err := metis.PartGraphKway(
		int32(n), ncon, xadj, adjncy,
		nil, nil, nil,
		int32(nparts), nil, nil, options,
	)
	if err != nil {
		return nil, fmt.Errorf("mesh: metis partition failed: %w", err)
	}
	return part, nil
}

// elementAdjacency turns the element x vertex CSR into an element x element
// adjacency CSR (two elements are adjacent if they share at least one
// vertex), the graph representation METIS partitions.
func elementAdjacency(csr CSR) (xadj, adjncy []int32) {
	n := len(csr.RowPtr) - 1

	vertexToElems := make(map[int32][]int32)
	for e := 0; e < n; e++ {
		for _, v := range csr.ColInd[csr.RowPtr[e]:csr.RowPtr[e+1]] {
			vertexToElems[v] = append(vertexToElems[v], int32(e))
		}
	}

	neighbors := make([]map[int32]struct{}, n)
	for e := range neighbors {
		neighbors[e] = make(map[int32]struct{})
	}
	for _, elems := range vertexToElems {
		for _, a := range elems {
			for _, b := range elems {
				if a != b {
					neighbors[a][b] = struct{}{}
				}
			}
		}
	}

	xadj = make([]int32, n+1)
	for e := 0; e < n; e++ {
		xadj[e+1] = xadj[e] + int32(len(neighbors[e]))
	}
	adjncy = make([]int32, 0, xadj[n])
	for e := 0; e < n; e++ {
		ns := make([]int32, 0, len(neighbors[e]))
		for nb := range neighbors[e] {
			ns = append(ns, nb)
		}
		sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
		adjncy = append(adjncy, ns...)
	}
	return xadj, adjncy
}

// Repartition calls the external partitioner on this mesh's CSR and moves
// elements (and element data) to their assigned rank.
func (m *GlobalSimplexMesh) Repartition(partitioner GraphPartitioner) error {
	csr := m.DistributedCSR()
	part, err := partitioner.Partition(csr, m.group.Size())
	if err != nil {
		return err
	}
	if len(part) != len(m.elems) {
		panic(fmt.Sprintf("mesh: partitioner returned %d entries for %d local elements", len(part), len(m.elems)))
	}
	m.doPartition(part)
	m.isHashPartitioned = false
	return nil
}

// RepartitionByHash partitions elements by H_D(e) mod procs. It is
// idempotent: a call when the hash-partitioned flag is already set is a
// no-op.
func (m *GlobalSimplexMesh) RepartitionByHash() {
	if m.isHashPartitioned {
		return
	}
	owner := simplex.HashOwner(m.group.Size())
	part := make([]int32, len(m.elems))
	for i, e := range m.elems {
		part[i] = int32(owner(e))
	}
	m.doPartition(part)
	m.isHashPartitioned = true
}

// doPartition moves elems (and elementData, if present) according to part,
// part[i] being the destination rank of m.elems[i].
func (m *GlobalSimplexMesh) doPartition(part []int32) {
	procs := m.group.Size()

	enumeration := make([]int, len(part))
	for i := range enumeration {
		enumeration[i] = i
	}
	sort.SliceStable(enumeration, func(i, j int) bool {
		return part[enumeration[i]] < part[enumeration[j]]
	})

	sendCounts := make([]int, procs)
	elemsToSend := make([]simplex.Simplex, len(enumeration))
	for i, localIdx := range enumeration {
		p := int(part[localIdx])
		sendCounts[p]++
		elemsToSend[i] = m.elems[localIdx]
	}

	a2a := parallel.New(m.group, sendCounts)
	m.elems = exchangeSimplices(a2a, elemsToSend, m.dim+1)

	if m.elementData != nil {
		permutation := make([]uint64, len(enumeration))
		for i, localIdx := range enumeration {
			permutation[i] = uint64(localIdx)
		}
		m.elementData = m.elementData.Redistribute(permutation, a2a)
	}
}

// exchangeSimplices ships width-vertex simplices through a2a, re-encoding
// to/from the byte buffers AllToAllV transports.
func exchangeSimplices(a2a *parallel.AllToAllV, elems []simplex.Simplex, width int) []simplex.Simplex {
	send := make([]uint64, len(elems)*width)
	for i, e := range elems {
		copy(send[i*width:(i+1)*width], e.Vertices())
	}
	recv := a2a.ExchangeUint64(send)
	n := len(recv) / width
	out := make([]simplex.Simplex, n)
	for i := 0; i < n; i++ {
		out[i] = simplex.New(append([]uint64(nil), recv[i*width:(i+1)*width]...))
	}
	return out
}
