package snapshot

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTextWriter_Write(t *testing.T) {
	// 1. Create a writer in a directory that does not exist yet
	root := filepath.Join(t.TempDir(), "out")
	writer, err := NewTextWriter(config.TextConfig{RootPath: root, Prefix: "run"})
	if err != nil {
		t.Fatalf("NewTextWriter failed: %v", err)
	}

	// 2. Write two records
	for seq := uint64(0); seq < 2; seq++ {
		record := model.Record{Seq: seq, Suffix: CommSuffix, Body: []byte("0,1\n1,0\n"), Timestamp: time.Now()}
		if err := writer.Write(nil, record); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// 3. Verify one file per record
	for _, name := range []string{"run.000000.comm.csv", "run.000001.comm.csv"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			t.Fatalf("Expected file %s: %v", name, err)
		}
		if string(data) != "0,1\n1,0\n" {
			t.Errorf("Unexpected content in %s: %q", name, data)
		}
	}
}

func TestTextWriter_DefaultPrefix(t *testing.T) {
	root := t.TempDir()
	writer, err := NewTextWriter(config.TextConfig{RootPath: root})
	if err != nil {
		t.Fatalf("NewTextWriter failed: %v", err)
	}
	if err := writer.Write(nil, model.Record{Seq: 7, Suffix: PageSuffix, Body: []byte("x")}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "numalize.000007.page.csv")); err != nil {
		t.Errorf("Expected default-prefixed file: %v", err)
	}
}

func TestTextWriter_WriteFailure(t *testing.T) {
	root := t.TempDir()
	writer, err := NewTextWriter(config.TextConfig{RootPath: root})
	if err != nil {
		t.Fatalf("NewTextWriter failed: %v", err)
	}
	// A directory in place of the target file makes the write fail.
	if err := os.Mkdir(filepath.Join(root, FileName(defaultPrefix, 0, CommSuffix)), 0755); err != nil {
		t.Fatalf("Failed to create blocking directory: %v", err)
	}
	if err := writer.Write(nil, model.Record{Seq: 0, Suffix: CommSuffix}); err == nil {
		t.Error("Expected an error when the file cannot be created")
	}
}
