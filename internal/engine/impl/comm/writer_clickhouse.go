package comm

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"Go2MemSpectra/internal/snapshot"
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createCommMatrixTableStatement = `
CREATE TABLE IF NOT EXISTS comm_matrix (
    Timestamp   DateTime,
    Seq         UInt64,
    Accessor    UInt32,
    Other       UInt32,
    Count       UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Seq, Accessor, Other);
`

// cell is one nonzero directed matrix entry.
type cell struct {
	Accessor uint32
	Other    uint32
	Count    uint64
}

// ClickHouseWriter stores the nonzero cells of each interval's directed matrix.
// It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter creates a new ClickHouse writer for the communication matrix.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := snapshot.ConnectClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createCommMatrixTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create comm_matrix table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured comm_matrix table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Name returns the writer type.
func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

func (w *ClickHouseWriter) Write(payload any, record model.Record) error {
	matrix, ok := payload.(model.MatrixSnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for comm ClickHouse writer: expected model.MatrixSnapshot, got %T", payload)
	}

	cells := nonzeroCells(matrix)
	if len(cells) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO comm_matrix")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, c := range cells {
		if err := batch.Append(record.Timestamp, record.Seq, c.Accessor, c.Other, c.Count); err != nil {
			return fmt.Errorf("failed to append matrix cell to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d matrix cells of interval %d to ClickHouse", len(cells), record.Seq)
	return nil
}

// nonzeroCells lists the directed cells with a count, row by row.
func nonzeroCells(m model.MatrixSnapshot) []cell {
	var cells []cell
	for i := 0; i < m.Threads; i++ {
		for j := 0; j < m.Threads; j++ {
			if c := m.At(i, j); c > 0 {
				cells = append(cells, cell{Accessor: uint32(i), Other: uint32(j), Count: c})
			}
		}
	}
	return cells
}
