package snapshot

import (
	"Go2MemSpectra/internal/model"
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const (
	CommSuffix = "comm.csv"
	PageSuffix = "page.csv"
)

// Format renders a tracker snapshot into its text record.
func Format(seq uint64, payload any, ts time.Time) (model.Record, error) {
	switch snap := payload.(type) {
	case model.MatrixSnapshot:
		return model.Record{Seq: seq, Suffix: CommSuffix, Body: FormatMatrix(snap), Timestamp: ts}, nil
	case model.PageSnapshot:
		return model.Record{Seq: seq, Suffix: PageSuffix, Body: FormatPages(snap), Timestamp: ts}, nil
	default:
		return model.Record{}, fmt.Errorf("invalid payload type for formatter: %T", payload)
	}
}

// FormatMatrix renders the communication matrix with one row per thread from the highest
// index down and one column per thread from index 0 up. Each cell is the undirected
// count matrix[row][col] + matrix[col][row].
func FormatMatrix(m model.MatrixSnapshot) []byte {
	var buf bytes.Buffer
	n := m.Threads
	for i := n - 1; i >= 0; i-- {
		for j := 0; j < n; j++ {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatUint(m.At(i, j)+m.At(j, i), 10))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatPages renders the page histogram: a header row and then
// "nr,page,firstacc,T0,...,Tn-1" for every page.
func FormatPages(p model.PageSnapshot) []byte {
	var buf bytes.Buffer
	buf.WriteString("nr, addr, firstacc")
	for i := 0; i < p.Threads; i++ {
		buf.WriteString(", T")
		buf.WriteString(strconv.Itoa(i))
	}
	buf.WriteByte('\n')

	for nr, row := range p.Pages {
		buf.WriteString(strconv.Itoa(nr))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatUint(row.Key, 10))
		buf.WriteByte(',')
		buf.WriteString(strconv.Itoa(int(row.FirstAccessor)))
		for _, c := range row.Counts {
			buf.WriteByte(',')
			buf.WriteString(strconv.FormatUint(c, 10))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FileName returns the output file name of a record, e.g. "numalize.000042.comm.csv".
func FileName(prefix string, seq uint64, suffix string) string {
	return fmt.Sprintf("%s.%06d.%s", prefix, seq, suffix)
}
