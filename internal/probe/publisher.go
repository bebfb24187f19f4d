package probe

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	accessSuffix = ".access"
	threadSuffix = ".thread"
	exitSuffix   = ".exit"
)

// Publisher forwards instrumentation callbacks to NATS. Access events are batched;
// a thread start or program exit first flushes the pending batch so the engine
// sees events in the order they were produced.
// A Publisher is not safe for concurrent use.
type Publisher struct {
	nc        *nats.Conn
	subject   string
	batchSize int
	pending   []model.AccessEvent
	published uint64
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return newPublisher(nc, cfg), nil
}

func newPublisher(nc *nats.Conn, cfg config.ProbeConfig) *Publisher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	return &Publisher{
		nc:        nc,
		subject:   cfg.Subject,
		batchSize: batchSize,
		pending:   make([]model.AccessEvent, 0, batchSize),
	}
}

// OnMemoryAccess queues one access and publishes the batch once it is full.
func (p *Publisher) OnMemoryAccess(addr uint64, slot uint32) error {
	p.pending = append(p.pending, model.AccessEvent{Addr: addr, Slot: slot})
	if len(p.pending) >= p.batchSize {
		return p.Flush()
	}
	return nil
}

// OnThreadStart publishes a thread start after the pending accesses.
func (p *Publisher) OnThreadStart(slot uint32) error {
	if err := p.Flush(); err != nil {
		return err
	}
	return p.nc.Publish(p.subject+threadSuffix, EncodeThreadStart(slot))
}

// OnProgramExit publishes the pending accesses and the exit notification, then waits
// for the server to acknowledge everything sent so far.
func (p *Publisher) OnProgramExit() error {
	if err := p.Flush(); err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject+exitSuffix, nil); err != nil {
		return err
	}
	return p.nc.Flush()
}

// Flush publishes the pending batch, if any.
func (p *Publisher) Flush() error {
	if len(p.pending) == 0 {
		return nil
	}
	data, err := EncodeBatch(p.pending, time.Now())
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject+accessSuffix, data); err != nil {
		return fmt.Errorf("failed to publish access batch: %w", err)
	}
	p.published += uint64(len(p.pending))
	p.pending = p.pending[:0]
	return nil
}

// Published returns the number of access events sent so far.
func (p *Publisher) Published() uint64 {
	return p.published
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
