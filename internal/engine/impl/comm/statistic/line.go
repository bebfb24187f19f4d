package statistic

// LineState is the accessor history of one cache line.
// A holds the most recent distinct accessor and B the one before it, each stored
// as logical index + 1 so that 0 means empty. The state lives for the whole run.
//
// Fields are plain integers updated without synchronization: two threads racing
// on the same line may interleave their transitions.
type LineState struct {
	A uint32
	B uint32
}

// Matrix is the directed communication counter table [accessor][other], row-major.
// Cells are plain counters incremented without synchronization; racing increments
// may be lost. Its capacity is fixed at construction.
type Matrix struct {
	capacity int
	cells    []uint64
}

// NewMatrix allocates a capacity x capacity matrix.
func NewMatrix(capacity int) *Matrix {
	return &Matrix{
		capacity: capacity,
		cells:    make([]uint64, capacity*capacity),
	}
}

// Capacity returns the number of rows (and columns).
func (m *Matrix) Capacity() int {
	return m.capacity
}

// Inc increments matrix[accessor][other]. Self pairs are ignored.
func (m *Matrix) Inc(accessor, other int) {
	if accessor == other {
		return
	}
	m.cells[accessor*m.capacity+other]++
}

// At returns matrix[accessor][other].
func (m *Matrix) At(accessor, other int) uint64 {
	return m.cells[accessor*m.capacity+other]
}

// CopyAndZero copies the leading n x n block into a new row-major slice and zeroes the whole table.
func (m *Matrix) CopyAndZero(n int) []uint64 {
	if n > m.capacity {
		n = m.capacity
	}
	out := make([]uint64, n*n)
	for i := 0; i < n; i++ {
		copy(out[i*n:(i+1)*n], m.cells[i*m.capacity:i*m.capacity+n])
	}
	clear(m.cells)
	return out
}
