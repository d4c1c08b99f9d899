// Package meshdata provides the attached-data capability: opaque
// per-vertex/per-element payload rows that know how to redistribute
// themselves across ranks given a local permutation and an AllToAllV. The
// mesh code never inspects row contents; it only calls Redistribute.
package meshdata

import (
	"fmt"
	"math"

	"github.com/notargets/simplexmesh/parallel"
	"gonum.org/v1/gonum/mat"
)

// Unset is the sentinel permutation index meaning "no data for this send
// slot". A slot filled with Unset must survive Redistribute as an unset row
// rather than erroring.
const Unset = ^uint64(0)

// AttachedData is the capability the mesh builder depends on. Concrete
// element- and vertex-data types hide their representation behind this one
// redistribution operation, so the mesh builder can move any kind of
// payload without knowing what it is.
type AttachedData interface {
	// Len returns the number of local rows.
	Len() int

	// Width returns the number of float64 columns per row.
	Width() int

	// Redistribute gathers rows in permuted order — permutation[i] is the
	// local row index to place at send-slot i, or Unset for "no row" — and
	// ships them with ex, returning the freshly received AttachedData.
	Redistribute(permutation []uint64, ex *parallel.AllToAllV) AttachedData

	// Row returns a read-only view of the i-th local row. A row of all
	// NaN indicates an Unset slot that was carried through a Redistribute.
	Row(i int) []float64
}

// RowData is a dense, fixed-width AttachedData backed by a gonum
// mat.Dense, for numeric element/vertex state attached one row per
// face.
type RowData struct {
	rows  *mat.Dense // nil when n == 0
	width int
}

// NewRowData wraps data (n rows of width columns, row-major) as
// AttachedData.
func NewRowData(n, width int, data []float64) *RowData {
	if len(data) != n*width {
		panic(fmt.Sprintf("meshdata: data has %d entries, want %d (%d rows x %d cols)", len(data), n*width, n, width))
	}
	if n == 0 {
		return &RowData{width: width}
	}
	return &RowData{rows: mat.NewDense(n, width, append([]float64(nil), data...)), width: width}
}

func unsetRow(width int) []float64 {
	r := make([]float64, width)
	for i := range r {
		r[i] = math.NaN()
	}
	return r
}

// IsUnset reports whether row is the sentinel "no data" row.
func IsUnset(row []float64) bool {
	for _, v := range row {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(row) > 0
}

func (d *RowData) Len() int {
	if d.rows == nil {
		return 0
	}
	r, _ := d.rows.Dims()
	return r
}

func (d *RowData) Width() int { return d.width }

func (d *RowData) Row(i int) []float64 {
	out := make([]float64, d.width)
	mat.Row(out, i, d.rows)
	return out
}

func (d *RowData) Redistribute(permutation []uint64, ex *parallel.AllToAllV) AttachedData {
	width := d.Width()
	send := make([]float64, len(permutation)*width)
	for i, src := range permutation {
		var row []float64
		if src == Unset {
			row = unsetRow(width)
		} else {
			row = d.Row(int(src))
		}
		copy(send[i*width:(i+1)*width], row)
	}
	sendBytes := floatsToBytes(send)
	recvBytes := ex.Exchange(sendBytes, width*8)
	recv := bytesToFloats(recvBytes)
	n := len(recv) / width
	if n == 0 {
		return &RowData{width: width}
	}
	return &RowData{rows: mat.NewDense(n, width, recv), width: width}
}

func floatsToBytes(v []float64) []byte {
	out := make([]byte, len(v)*8)
	for i, f := range v {
		putU64(out[i*8:], math.Float64bits(f))
	}
	return out
}

func bytesToFloats(b []byte) []float64 {
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(getU64(b[i*8:]))
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
