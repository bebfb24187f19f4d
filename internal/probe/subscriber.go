package probe

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

// Subscriber receives instrumentation events from NATS and drives an event sink.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to every event subject with a single subscription, so that messages
// from one publisher are handled in publication order.
func (s *Subscriber) Start(sink model.EventSink) error {
	sub, err := s.nc.Subscribe(s.subject+".>", func(msg *nats.Msg) {
		Dispatch(s.subject, msg.Subject, msg.Data, sink)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s.>'. Waiting for events...", s.subject)
	return nil
}

// Dispatch decodes one message published under base and forwards it to the sink.
func Dispatch(base, subject string, data []byte, sink model.EventSink) {
	switch strings.TrimPrefix(subject, base) {
	case accessSuffix:
		events, _, err := DecodeBatch(data)
		if err != nil {
			log.Printf("Error decoding access batch: %v", err)
			return
		}
		for _, ev := range events {
			sink.OnMemoryAccess(ev.Addr, ev.Slot)
		}
	case threadSuffix:
		slot, err := DecodeThreadStart(data)
		if err != nil {
			log.Printf("Error decoding thread start: %v", err)
			return
		}
		if err := sink.OnThreadStart(slot); err != nil {
			log.Printf("Error registering thread in slot %d: %v", slot, err)
		}
	case exitSuffix:
		sink.OnProgramExit()
	default:
		log.Printf("Ignoring message on unexpected subject '%s'", subject)
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
