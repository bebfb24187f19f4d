// Package tracefile reads recorded instrumentation event streams.
//
// A trace is line oriented. Blank lines and lines starting with '#' are skipped.
//
//	T <slot>          thread in host slot <slot> started
//	A <addr> <slot>   memory access; <addr> is hex with optional 0x prefix
//	X                 program exit
package tracefile

import (
	"Go2MemSpectra/internal/model"
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Kind identifies the type of a trace event.
type Kind uint8

const (
	Access Kind = iota
	ThreadStart
	Exit
)

// Event is one parsed trace line.
type Event struct {
	Kind Kind
	Addr uint64
	Slot uint32
}

// Stats counts the events replayed from a trace.
type Stats struct {
	Accesses     uint64
	ThreadStarts uint64
	Exited       bool
}

// Reader reads events from a trace.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// Open opens a trace file.
func Open(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// NewReader reads a trace from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Next returns the next event, or io.EOF at the end of the trace.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ev, err := parseLine(text)
		if err != nil {
			return Event{}, fmt.Errorf("trace line %d: %w", r.line, err)
		}
		return ev, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

func parseLine(text string) (Event, error) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "A":
		if len(fields) != 3 {
			return Event{}, fmt.Errorf("access needs an address and a slot: %q", text)
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(fields[1]), "0x"), 16, 64)
		if err != nil {
			return Event{}, fmt.Errorf("invalid address %q: %w", fields[1], err)
		}
		slot, err := parseSlot(fields[2])
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: Access, Addr: addr, Slot: slot}, nil
	case "T":
		if len(fields) != 2 {
			return Event{}, fmt.Errorf("thread start needs a slot: %q", text)
		}
		slot, err := parseSlot(fields[1])
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: ThreadStart, Slot: slot}, nil
	case "X":
		return Event{Kind: Exit}, nil
	default:
		return Event{}, fmt.Errorf("unknown event %q", fields[0])
	}
}

func parseSlot(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	return uint32(v), nil
}

// Replay feeds every event of the trace to sink, stopping after an exit event.
// Thread registration failures stop the replay.
func (r *Reader) Replay(sink model.EventSink) (Stats, error) {
	var stats Stats
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		switch ev.Kind {
		case Access:
			sink.OnMemoryAccess(ev.Addr, ev.Slot)
			stats.Accesses++
		case ThreadStart:
			if err := sink.OnThreadStart(ev.Slot); err != nil {
				return stats, err
			}
			stats.ThreadStarts++
		case Exit:
			sink.OnProgramExit()
			stats.Exited = true
			return stats, nil
		}
	}
}
