package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGroupAllGather(t *testing.T) {
	groups := NewLocalGroup(3)
	results := make([][]uint64, 3)
	err := Run(groups, func(g *LocalGroup) error {
		results[g.Rank()] = g.AllGather(uint64(g.Rank() * 10))
		return nil
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, []uint64{0, 10, 20}, r)
	}
}

func TestLocalGroupScan(t *testing.T) {
	groups := NewLocalGroup(4)
	results := make([]uint64, 4)
	err := Run(groups, func(g *LocalGroup) error {
		results[g.Rank()] = g.Scan(uint64(g.Rank() + 1))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 6, 10}, results)
}

func TestLocalGroupExchangeCounts(t *testing.T) {
	groups := NewLocalGroup(2)
	results := make([][]int, 2)
	err := Run(groups, func(g *LocalGroup) error {
		var send []int
		if g.Rank() == 0 {
			send = []int{1, 3}
		} else {
			send = []int{2, 0}
		}
		results[g.Rank()] = g.ExchangeCounts(send)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, results[0])
	assert.Equal(t, []int{3, 0}, results[1])
}

func TestAllToAllVRoundTrip(t *testing.T) {
	groups := NewLocalGroup(3)
	received := make([][]uint64, 3)
	err := Run(groups, func(g *LocalGroup) error {
		// Rank r sends r+1 copies of its own rank id to rank (r+1)%3.
		sendCounts := make([]int, 3)
		target := (g.Rank() + 1) % 3
		sendCounts[target] = g.Rank() + 1
		payload := make([]uint64, g.Rank()+1)
		for i := range payload {
			payload[i] = uint64(g.Rank())
		}
		a := New(g, sendCounts)
		received[g.Rank()] = a.ExchangeUint64(payload)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 2, 2}, received[0])
	assert.Equal(t, []uint64{0}, received[1])
	assert.Equal(t, []uint64{1, 1}, received[2])
}

func TestAllToAllVSwapReusesPattern(t *testing.T) {
	groups := NewLocalGroup(2)
	replies := make([][]uint64, 2)
	err := Run(groups, func(g *LocalGroup) error {
		sendCounts := []int{0, 0}
		sendCounts[1-g.Rank()] = 1
		a := New(g, sendCounts)
		forward := a.ExchangeUint64([]uint64{uint64(g.Rank()) * 100})
		a.Swap()
		replies[g.Rank()] = a.ExchangeUint64(forward)
		return nil
	})
	require.NoError(t, err)
	// Forward sends rank 0 -> rank1 value 0, rank1 -> rank0 value 100.
	// After swap and a second exchange of the just-received values, each
	// rank should see its own original value echoed back.
	assert.Equal(t, []uint64{0}, replies[0])
	assert.Equal(t, []uint64{100}, replies[1])
}
