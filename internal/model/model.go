package model

import "time"

// AccessEvent is a single load or store executed by a traced thread.
type AccessEvent struct {
	Addr uint64
	Slot uint32
}

// MatrixSnapshot is the directed communication matrix of one interval.
// Cells is row-major: Cells[accessor*Threads+other].
type MatrixSnapshot struct {
	Threads int
	Cells   []uint64
}

// At returns matrix[accessor][other].
func (m MatrixSnapshot) At(accessor, other int) uint64 {
	return m.Cells[accessor*m.Threads+other]
}

// PageRow holds one page's counters for one interval.
type PageRow struct {
	Key           uint64
	FirstAccessor int32
	Counts        []uint64
}

// PageSnapshot is the page access histogram of one interval, ordered by page key.
type PageSnapshot struct {
	Threads int
	Pages   []PageRow
}

// Record is the formatted text rendering of a snapshot.
type Record struct {
	Seq       uint64
	Suffix    string
	Body      []byte
	Timestamp time.Time
}
