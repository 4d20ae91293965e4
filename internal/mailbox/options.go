package mailbox

import (
	"time"

	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/logging"
)

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithBus attaches an event bus. When set, deposit, take and store error
// events are published.
func WithBus(bus *event.Bus) Option {
	return func(m *Mailbox) {
		m.bus = bus
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Mailbox) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNow overrides the clock used to stamp deposited messages.
func WithNow(now func() time.Time) Option {
	return func(m *Mailbox) {
		if now != nil {
			m.now = now
		}
	}
}
