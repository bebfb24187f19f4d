package page

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"Go2MemSpectra/internal/snapshot"
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createPageAccessesTableStatement = `
CREATE TABLE IF NOT EXISTS page_accesses (
    Timestamp      DateTime,
    Seq            UInt64,
    Page           UInt64,
    FirstAccessor  Int32,
    Thread         UInt32,
    Count          UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Seq, Page, Thread);
`

type pageCount struct {
	Page          uint64
	FirstAccessor int32
	Thread        uint32
	Count         uint64
}

// ClickHouseWriter stores one row per page and thread with a nonzero count.
// It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter creates a new ClickHouse writer for the page histogram.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := snapshot.ConnectClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createPageAccessesTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create page_accesses table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured page_accesses table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Name returns the writer type.
func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

func (w *ClickHouseWriter) Write(payload any, record model.Record) error {
	pages, ok := payload.(model.PageSnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for page ClickHouse writer: expected model.PageSnapshot, got %T", payload)
	}

	rows := nonzeroCounts(pages)
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO page_accesses")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(record.Timestamp, record.Seq, r.Page, r.FirstAccessor, r.Thread, r.Count); err != nil {
			return fmt.Errorf("failed to append page count to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d page counts of interval %d to ClickHouse", len(rows), record.Seq)
	return nil
}

func nonzeroCounts(p model.PageSnapshot) []pageCount {
	var rows []pageCount
	for _, page := range p.Pages {
		for thread, c := range page.Counts {
			if c == 0 {
				continue
			}
			rows = append(rows, pageCount{
				Page:          page.Key,
				FirstAccessor: page.FirstAccessor,
				Thread:        uint32(thread),
				Count:         c,
			})
		}
	}
	return rows
}
