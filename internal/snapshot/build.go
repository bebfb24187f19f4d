package snapshot

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"log"
)

// ClickHouseFactory creates the mode-specific ClickHouse writer.
type ClickHouseFactory func(cfg config.ClickHouseConfig) (model.Writer, error)

// BuildWriters creates every enabled writer of a mode. Writers that fail to
// start or have an unknown type are logged and skipped.
func BuildWriters(mode string, defs []config.WriterDef, newClickHouse ClickHouseFactory) []model.Writer {
	writers := make([]model.Writer, 0, len(defs))
	for _, writerDef := range defs {
		if !writerDef.Enabled {
			continue
		}

		var writer model.Writer
		var err error
		switch writerDef.Type {
		case "text":
			writer, err = NewTextWriter(writerDef.Text)
		case "clickhouse":
			if newClickHouse == nil {
				log.Printf("Warning: mode '%s' has no ClickHouse writer, skipping.", mode)
				continue
			}
			writer, err = newClickHouse(writerDef.ClickHouse)
		default:
			log.Printf("Warning: unknown writer type '%s' in %s config, skipping.", writerDef.Type, mode)
			continue
		}
		if err != nil {
			log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
			continue
		}
		log.Printf("%s writer created for mode '%s'", writerDef.Type, mode)
		writers = append(writers, writer)
	}
	return writers
}
