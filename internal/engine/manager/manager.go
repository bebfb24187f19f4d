package manager

import (
	"Go2MemSpectra/internal/config"
	_ "Go2MemSpectra/internal/engine/impl/comm" // Registers the communication tracker
	_ "Go2MemSpectra/internal/engine/impl/page" // Registers the page access tracker
	"Go2MemSpectra/internal/engine/threads"
	"Go2MemSpectra/internal/factory"
	"Go2MemSpectra/internal/model"
	"Go2MemSpectra/internal/snapshot"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Manager is the process-wide engine. It owns the thread registry and the active tracker,
// dispatches access events to the tracker and runs the periodic reporter.
type Manager struct {
	cfg      config.EngineConfig
	tracker  model.Tracker
	writers  []model.Writer
	registry *threads.Registry
	shift    uint
	capacity int
	// width is the highest logical index of a started thread plus one.
	width    atomic.Int32

	// Reporter resources
	period     time.Duration
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	lifeMu     sync.Mutex
	started    bool
	exited     atomic.Bool
	reporterWg sync.WaitGroup

	flushes   atomic.Uint64
	dropped   atomic.Uint64
	lastFlush atomic.Pointer[model.Record]
}

// NewManager creates the tracker group for the configured mode and wraps it in a Manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	group, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg.Engine, group), nil
}

// New creates a Manager around an already built tracker group.
func New(cfg config.EngineConfig, group *factory.TrackerGroup) *Manager {
	return &Manager{
		cfg:      cfg,
		tracker:  group.Tracker,
		writers:  group.Writers,
		registry: threads.NewRegistry(cfg.MaxThreads, cfg.ReservedSlots),
		shift:    cfg.KeyShift(),
		capacity: cfg.MaxThreads,
		period:   cfg.IntervalDuration(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the periodic reporter.
func (m *Manager) Start() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.started || m.exited.Load() {
		return
	}
	m.started = true
	m.reporterWg.Add(1)
	go m.runReporter()
	log.Printf("Started %s reporter with interval %s and %d writers.", m.tracker.Name(), m.period, len(m.writers))
}

// OnMemoryAccess records one load or store. It is called concurrently from every traced
// thread without caller-side synchronization. Accesses from host-owned slots or beyond
// the highest started thread are counted as dropped; accesses after program exit are ignored.
func (m *Manager) OnMemoryAccess(addr uint64, slot uint32) {
	if m.exited.Load() {
		return
	}
	thread, ok := m.registry.EffectiveIndex(slot)
	if !ok || thread >= int(m.width.Load()) {
		m.dropped.Add(1)
		return
	}
	m.tracker.RecordAccess(addr>>m.shift, thread)
}

// OnThreadStart registers a newly started host thread. It fails when the thread would
// exceed the configured capacity.
func (m *Manager) OnThreadStart(slot uint32) error {
	thread, ok := m.registry.EffectiveIndex(slot)
	if !ok {
		log.Printf("Ignoring start of host-internal thread in slot %d.", slot)
		return nil
	}
	if thread >= m.capacity {
		return fmt.Errorf("%w: slot %d maps to logical thread %d, max_threads is %d", threads.ErrCapacityExceeded, slot, thread, m.capacity)
	}
	if _, err := m.registry.Register(uint64(slot)); err != nil {
		return err
	}
	for w := m.width.Load(); int32(thread) >= w; w = m.width.Load() {
		if m.width.CompareAndSwap(w, int32(thread)+1) {
			break
		}
	}
	return nil
}

// OnProgramExit forces the final flush without waiting for the rest of the interval and
// stops the engine. It returns after the final flush has been written. Safe to call more than once.
func (m *Manager) OnProgramExit() {
	m.stopOnce.Do(func() {
		m.lifeMu.Lock()
		m.exited.Store(true)
		started := m.started
		m.lifeMu.Unlock()

		close(m.done)
		if started {
			m.reporterWg.Wait()
		} else {
			m.flush()
		}
		close(m.stopped)
		log.Println(m.Summary())
	})
	<-m.stopped
}

// Stopped is closed once the final flush has completed.
func (m *Manager) Stopped() <-chan struct{} {
	return m.stopped
}

// runReporter flushes every period until program exit, then flushes one last time.
func (m *Manager) runReporter() {
	defer m.reporterWg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flush()
		case <-m.done:
			m.flush()
			log.Println("Reporter shutting down.")
			return
		}
	}
}

// flush snapshots and resets the tracker while tracing continues, formats the snapshot
// and hands it to every writer. Writer failures are logged and tracing goes on.
func (m *Manager) flush() {
	seq := m.flushes.Add(1) - 1
	payload := m.tracker.SnapshotAndReset(int(m.width.Load()))

	record, err := snapshot.Format(seq, payload, time.Now())
	if err != nil {
		log.Printf("Error formatting snapshot %d: %v", seq, err)
		return
	}
	m.lastFlush.Store(&record)

	for _, w := range m.writers {
		if err := w.Write(payload, record); err != nil {
			log.Printf("Error writing snapshot %d with %s writer: %v", seq, w.Name(), err)
		}
	}
}

// LatestRecord returns the most recently flushed record.
func (m *Manager) LatestRecord() (model.Record, bool) {
	r := m.lastFlush.Load()
	if r == nil {
		return model.Record{}, false
	}
	return *r, true
}

// Status is a point-in-time view of the engine.
type Status struct {
	Mode              string `json:"mode"`
	MaxThreads        int    `json:"max_threads"`
	Threads           int    `json:"threads"`
	OutputThreads     int    `json:"output_threads"`
	CommLineShiftBits uint   `json:"comm_line_shift_bits"`
	PageShiftBits     uint   `json:"page_shift_bits"`
	Interval          string `json:"interval"`
	ReservedSlots     int    `json:"reserved_slots"`
	Flushes           uint64 `json:"flushes"`
	DroppedEvents     uint64 `json:"dropped_events"`
	TrackedKeys       int    `json:"tracked_keys"`
	MemoryKB          uint64 `json:"memory_kb"`
	Running           bool   `json:"running"`
}

// Status returns the current engine status. MemoryKB estimates the traced
// footprint as one key granule (cache line or page) per tracked key.
func (m *Manager) Status() Status {
	keys := m.tracker.Keys()
	return Status{
		Mode:              m.tracker.Name(),
		MaxThreads:        m.capacity,
		Threads:           m.registry.Count(),
		OutputThreads:     int(m.width.Load()),
		CommLineShiftBits: m.cfg.CommLineShiftBits,
		PageShiftBits:     m.cfg.PageShiftBits,
		Interval:          m.period.String(),
		ReservedSlots:     m.cfg.ReservedSlots,
		Flushes:           m.flushes.Load(),
		DroppedEvents:     m.dropped.Load(),
		TrackedKeys:       keys,
		MemoryKB:          (uint64(keys) << m.shift) / 1024,
		Running:           !m.exited.Load(),
	}
}

// Summary renders the end-of-run line with capacity, the effective configuration and the traced memory totals.
func (m *Manager) Summary() string {
	s := m.Status()
	return fmt.Sprintf("MAXTHREADS: %d MODE: %s COMMSIZE: %d PAGESIZE: %d INTERVAL: %s RESERVED: %d NUM_THREADS: %d FLUSHES: %d DROPPED: %d KEYS: %d MEMORY: %d KB",
		s.MaxThreads, s.Mode, s.CommLineShiftBits, s.PageShiftBits, s.Interval, s.ReservedSlots, s.Threads, s.Flushes, s.DroppedEvents,
		s.TrackedKeys, s.MemoryKB)
}
