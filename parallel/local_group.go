package parallel

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LocalGroup is an in-process reference implementation of Group: it
// simulates Size() ranks as goroutines sharing a hub instead of real
// network connections, in the spirit of the net-backed mpi.Network
// implementation of the mpi.Mpi interface. It exists for tests and
// single-binary demos; it is not a substitute for a real MPI binding in
// production, since every "rank" still shares the process's memory.
type LocalGroup struct {
	rank int
	hub  *hub
}

// NewLocalGroup returns one LocalGroup per simulated rank, sharing a single
// hub. Run each with its own goroutine (see Run) to get genuine collective
// rendezvous semantics.
func NewLocalGroup(size int) []*LocalGroup {
	if size <= 0 {
		panic("parallel: NewLocalGroup requires size > 0")
	}
	h := newHub(size)
	groups := make([]*LocalGroup, size)
	for r := 0; r < size; r++ {
		groups[r] = &LocalGroup{rank: r, hub: h}
	}
	return groups
}

// Run launches fn(groups[r]) concurrently for every rank and waits for all
// of them to finish, returning the first error encountered (grounded on
// hupe1980-vecgo's errgroup.WithContext fan-out pattern). Every Group
// collective call inside fn must be reached by every rank in the same
// order, or the goroutines deadlock inside the shared barrier.
func Run(groups []*LocalGroup, fn func(g *LocalGroup) error) error {
	var eg errgroup.Group
	for _, g := range groups {
		g := g
		eg.Go(func() error { return fn(g) })
	}
	return eg.Wait()
}

func (g *LocalGroup) Rank() int { return g.rank }
func (g *LocalGroup) Size() int { return g.hub.n }

func (g *LocalGroup) Scan(local uint64) uint64 {
	all := g.AllGather(local)
	var sum uint64
	for r := 0; r <= g.rank; r++ {
		sum += all[r]
	}
	return sum
}

func (g *LocalGroup) AllGather(local uint64) []uint64 {
	result := g.hub.collective(g.rank, local)
	out := make([]uint64, len(result))
	for i, v := range result {
		out[i] = v.(uint64)
	}
	return out
}

func (g *LocalGroup) ExchangeCounts(sendCounts []int) []int {
	if len(sendCounts) != g.hub.n {
		panic(fmt.Sprintf("parallel: sendCounts has length %d, want %d", len(sendCounts), g.hub.n))
	}
	all := g.hub.collective(g.rank, append([]int(nil), sendCounts...))
	recv := make([]int, g.hub.n)
	for p := 0; p < g.hub.n; p++ {
		recv[p] = all[p].([]int)[g.rank]
	}
	return recv
}

type postedPayload struct {
	counts []int
	displs []int
	data   []byte
	stride int
}

func (g *LocalGroup) Exchange(sendCounts, sendDispls, recvCounts, recvDispls []int, data []byte, stride int) []byte {
	posted := postedPayload{counts: sendCounts, displs: sendDispls, data: data, stride: stride}
	all := g.hub.collective(g.rank, posted)

	total := 0
	for _, c := range recvCounts {
		total += c
	}
	out := make([]byte, total*stride)
	for p := 0; p < g.hub.n; p++ {
		peer := all[p].(postedPayload)
		count := peer.counts[g.rank]
		if count == 0 {
			continue
		}
		srcOff := peer.displs[g.rank] * stride
		dstOff := recvDispls[p] * stride
		copy(out[dstOff:dstOff+count*stride], peer.data[srcOff:srcOff+count*stride])
	}
	return out
}

// hub is a reusable sense-reversing barrier: n participants each submit a
// value and receive the full, rank-ordered slice of every participant's
// value once all n have arrived. Because every caller in this package only
// starts its next collective after consuming the result of the previous one,
// the hub can safely be reused for an unbounded sequence of collectives
// without per-call allocation of a fresh synchronization object.
type hub struct {
	n int

	mu         sync.Mutex
	cond       *sync.Cond
	sense      bool
	count      int
	data       []any
	lastResult []any
}

func newHub(n int) *hub {
	h := &hub{n: n, data: make([]any, n)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *hub) collective(rank int, value any) []any {
	h.mu.Lock()
	mySense := h.sense
	h.data[rank] = value
	h.count++
	if h.count == h.n {
		result := append([]any(nil), h.data...)
		h.lastResult = result
		h.data = make([]any, h.n)
		h.count = 0
		h.sense = !mySense
		h.cond.Broadcast()
		h.mu.Unlock()
		return result
	}
	for h.sense == mySense {
		h.cond.Wait()
	}
	result := h.lastResult
	h.mu.Unlock()
	return result
}
