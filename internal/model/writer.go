package model

// Writer defines a generic interface for persisting one flushed interval.
type Writer interface {
	// Write receives the raw snapshot payload and its formatted text record.
	// The implementation is expected to know how to handle the payload type it receives.
	Write(payload any, record Record) error

	Name() string
}
