// Package distribution implements the sorted distribution that maps an
// owner rank to a contiguous id range via prefix sums over per-rank counts,
// commonly called vtxdist or elmdist.
package distribution

import (
	"fmt"
	"sort"
)

// SortedDistribution is the length-(procs+1) prefix-sum array
// [0, n_0, n_0+n_1, ..., total]. Rank p owns the contiguous id range
// [dist[p], dist[p+1]).
type SortedDistribution []uint64

// Make builds a SortedDistribution from the local count of a single rank by
// all-gathering every rank's local count and taking a prefix sum. allGather
// is supplied by the caller's process group (parallel.Group.AllGather) so
// this package stays independent of the transport.
func Make(localCount uint64, allGather func(local uint64) []uint64) SortedDistribution {
	counts := allGather(localCount)
	dist := make(SortedDistribution, len(counts)+1)
	for i, c := range counts {
		dist[i+1] = dist[i] + c
	}
	return dist
}

// Total returns the global count covered by the distribution.
func (d SortedDistribution) Total() uint64 {
	if len(d) == 0 {
		return 0
	}
	return d[len(d)-1]
}

// Procs returns the number of ranks the distribution spans.
func (d SortedDistribution) Procs() int {
	if len(d) == 0 {
		return 0
	}
	return len(d) - 1
}

// RankOf returns the unique rank whose range [dist[p], dist[p+1]) contains
// id, via binary search. It panics if id is outside [0, Total()).
func (d SortedDistribution) RankOf(id uint64) int {
	if len(d) < 2 || id >= d.Total() {
		panic(fmt.Sprintf("distribution: id %d outside [0, %d)", id, d.Total()))
	}
	// Find the last index p such that dist[p] <= id.
	p := sort.Search(len(d), func(i int) bool { return d[i] > id }) - 1
	if p < 0 || p >= d.Procs() {
		panic(fmt.Sprintf("distribution: id %d outside [0, %d)", id, d.Total()))
	}
	return p
}

// LocalIndex returns id's offset within its owning rank's local range.
func (d SortedDistribution) LocalIndex(id uint64) uint64 {
	p := d.RankOf(id)
	return id - d[p]
}
