package parallel

// PeerIndex pairs a buffer position with the peer rank that produced (on
// receive) or will receive (on send) the item at that position.
type PeerIndex struct {
	Peer  int
	Index int
}

// AllToAllV holds the send/receive counts and displacements for a symmetric
// variable-length exchange. The same AllToAllV may be reused to exchange
// several payloads that share the same counts, and may be reversed with
// Swap so a reply can travel the pattern backwards without recomputing
// counts.
type AllToAllV struct {
	group Group

	sendCounts []int
	sendDispls []int
	recvCounts []int
	recvDispls []int
}

// New builds an AllToAllV from this rank's send counts alone; receive
// counts are obtained from a collective size exchange.
func New(group Group, sendCounts []int) *AllToAllV {
	recvCounts := group.ExchangeCounts(sendCounts)
	return NewWithRecvCounts(group, sendCounts, recvCounts)
}

// NewWithRecvCounts builds an AllToAllV when both send and receive counts
// are already known, skipping the size-exchange collective.
func NewWithRecvCounts(group Group, sendCounts, recvCounts []int) *AllToAllV {
	a := &AllToAllV{
		group:      group,
		sendCounts: append([]int(nil), sendCounts...),
		recvCounts: append([]int(nil), recvCounts...),
	}
	a.sendDispls = displacements(a.sendCounts)
	a.recvDispls = displacements(a.recvCounts)
	return a
}

func displacements(counts []int) []int {
	d := make([]int, len(counts))
	total := 0
	for i, c := range counts {
		d[i] = total
		total += c
	}
	return d
}

// SendCounts, RecvCounts expose the per-peer item counts.
func (a *AllToAllV) SendCounts() []int { return a.sendCounts }
func (a *AllToAllV) RecvCounts() []int { return a.recvCounts }

// Exchange ships data (len(data) == sum(sendCounts)*stride bytes, laid out
// in rank order per sDispls) and returns the receive buffer in rank order,
// length sum(recvCounts)*stride. The exchange is blocking and collective.
func (a *AllToAllV) Exchange(data []byte, stride int) []byte {
	return a.group.Exchange(a.sendCounts, a.sendDispls, a.recvCounts, a.recvDispls, data, stride)
}

// ExchangeUint64 is a typed convenience wrapper over Exchange for
// fixed-width uint64 payloads (element/face ids, GIDs, ...).
func (a *AllToAllV) ExchangeUint64(data []uint64) []uint64 {
	raw := uint64sToBytes(data)
	recv := a.Exchange(raw, 8)
	return bytesToUint64s(recv)
}

// ExchangeInt is a typed convenience wrapper over Exchange for int
// payloads (rank ids, small counts, ...).
func (a *AllToAllV) ExchangeInt(data []int) []int {
	u := make([]uint64, len(data))
	for i, v := range data {
		u[i] = uint64(int64(v))
	}
	recv := a.ExchangeUint64(u)
	out := make([]int, len(recv))
	for i, v := range recv {
		out[i] = int(int64(v))
	}
	return out
}

// Swap exchanges the send and receive roles in place so a reply can reuse
// this object's communication pattern without recomputing counts.
func (a *AllToAllV) Swap() {
	a.sendCounts, a.recvCounts = a.recvCounts, a.sendCounts
	a.sendDispls, a.recvDispls = a.recvDispls, a.sendDispls
}

// SDispls returns, for each position in a send buffer (in the order
// Exchange expects it), the peer rank that position will be sent to.
func (a *AllToAllV) SDispls() []PeerIndex {
	return expand(a.sendCounts, a.sendDispls)
}

// RDispls returns, for each position in a just-received buffer, the peer
// rank that item came from. This is the contract Exchange guarantees: the
// i-th received item originates from RDispls()[i].Peer.
func (a *AllToAllV) RDispls() []PeerIndex {
	return expand(a.recvCounts, a.recvDispls)
}

func expand(counts, displs []int) []PeerIndex {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]PeerIndex, 0, total)
	for p, c := range counts {
		for i := 0; i < c; i++ {
			out = append(out, PeerIndex{Peer: p, Index: displs[p] + i})
		}
	}
	return out
}

func uint64sToBytes(v []uint64) []byte {
	out := make([]byte, len(v)*8)
	for i, x := range v {
		putU64(out[i*8:], x)
	}
	return out
}

func bytesToUint64s(b []byte) []uint64 {
	out := make([]uint64, len(b)/8)
	for i := range out {
		out[i] = getU64(b[i*8:])
	}
	return out
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
