package snapshot

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"fmt"
	"os"
	"path/filepath"
)

const defaultPrefix = "numalize"

// TextWriter writes every formatted record to its own CSV file under a root directory.
// It implements the model.Writer interface.
type TextWriter struct {
	rootPath string
	prefix   string
}

// NewTextWriter creates the root directory if needed and returns a writer for it.
func NewTextWriter(cfg config.TextConfig) (*TextWriter, error) {
	rootPath := cfg.RootPath
	if rootPath == "" {
		rootPath = "."
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &TextWriter{rootPath: rootPath, prefix: prefix}, nil
}

// Name returns the writer type.
func (w *TextWriter) Name() string {
	return "text"
}

// Write stores the record body in <root>/<prefix>.<seq>.<suffix>.
func (w *TextWriter) Write(_ any, record model.Record) error {
	filePath := filepath.Join(w.rootPath, FileName(w.prefix, record.Seq, record.Suffix))

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	if _, err := file.Write(record.Body); err != nil {
		file.Close()
		return fmt.Errorf("failed to write snapshot file '%s': %w", filePath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file '%s': %w", filePath, err)
	}
	return nil
}
