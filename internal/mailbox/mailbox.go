package mailbox

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/logging"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// maxTakeErrors is the number of consecutive store read failures after
// which TryTake logs at error level instead of warn. Individual failures
// are expected (a producer mid-write); sustained ones indicate a corrupt
// record that needs attention.
const maxTakeErrors = 5

// logPreviewLen bounds message content in log lines.
const logPreviewLen = 50

// Mailbox holds at most one pending message on top of a Store and wakes
// waiters when a message is deposited.
type Mailbox struct {
	store  Store
	bus    *event.Bus
	logger *logging.Logger
	now    func() time.Time

	// mu makes Deposit and TryTake linearizable even for stores that
	// only guarantee per-call atomicity.
	mu                sync.Mutex
	consecutiveErrors int

	sigMu sync.Mutex
	sig   chan struct{}
}

// New creates a Mailbox over store.
func New(store Store, opts ...Option) *Mailbox {
	m := &Mailbox{
		store:  store,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("mailbox")
	return m
}

// Store returns the underlying store.
func (m *Mailbox) Store() Store {
	return m.store
}

// NewMessageID returns a fresh message identifier.
func NewMessageID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", errors.Wrap(err, "mailbox: generate message id")
	}
	return id, nil
}

// Deposit validates msg and makes it the pending message, replacing any
// unconsumed one. An invalid mode is rejected with an error matching
// errors.ErrInvalidMode and leaves the mailbox unchanged. Empty ID and
// Timestamp fields are filled in.
func (m *Mailbox) Deposit(msg Message) error {
	if !msg.Mode.Valid() {
		return invalidModeError(msg.Mode)
	}
	if msg.ID == "" {
		id, err := NewMessageID()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}

	m.mu.Lock()
	replaced, err := m.store.Save(msg)
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("failed to store message", "error", err.Error())
		return errors.Wrap(err, "mailbox: deposit")
	}

	m.logger.Info("message queued",
		"message_id", msg.ID,
		"mode", string(msg.Mode),
		"from", msg.Origin,
		"replaced", replaced,
		"content", msg.Preview(logPreviewLen))
	if replaced {
		m.logger.Warn("unconsumed message overwritten", "message_id", msg.ID)
	}
	if m.bus != nil {
		m.bus.Publish(event.NewMessageDepositedEvent(msg.ID, string(msg.Mode), msg.Origin, replaced))
	}

	m.signal()
	return nil
}

// TryTake returns the pending message and clears the slot. It reports
// false when the mailbox is empty. Store read failures are logged and
// treated as empty; the next call reads again.
func (m *Mailbox) TryTake() (Message, bool) {
	m.mu.Lock()
	msg, ok, err := m.store.Take()
	if err != nil {
		m.consecutiveErrors++
		n := m.consecutiveErrors
		if n >= maxTakeErrors {
			m.consecutiveErrors = 0
		}
		m.mu.Unlock()

		switch {
		case n >= maxTakeErrors:
			m.logger.Error("store read failing repeatedly", "error", err.Error(), "failures", n)
		case !errors.IsTransient(err):
			m.logger.Error("store failure while reading pending message", "error", err.Error())
		default:
			m.logger.Warn("error reading pending message", "error", err.Error())
		}
		if m.bus != nil {
			m.bus.Publish(event.NewStoreErrorEvent(m.store.Backend(), err))
		}
		return Message{}, false
	}
	m.consecutiveErrors = 0
	m.mu.Unlock()

	if !ok {
		return Message{}, false
	}

	if !msg.Mode.Valid() {
		// Written by an external producer; deliver as-is.
		m.logger.Warn("delivering message with unknown mode", "message_id", msg.ID, "mode", string(msg.Mode))
	}
	m.logger.Info("message found and consumed",
		"message_id", msg.ID,
		"content", msg.Preview(logPreviewLen))
	if m.bus != nil {
		m.bus.Publish(event.NewMessageTakenEvent(msg.ID, string(msg.Mode)))
	}
	return msg, true
}

// IsPending reports whether a message is waiting. It is a best-effort
// snapshot for status output and may race with Deposit and TryTake.
func (m *Mailbox) IsPending() bool {
	pending, err := m.store.Pending()
	if err != nil {
		m.logger.Warn("error checking pending message", "error", err.Error())
		return false
	}
	return pending
}

// Notify returns a channel that is closed by the next Deposit (or store
// change seen by Watch). Obtain it before calling TryTake so that a
// deposit landing in between is not missed.
func (m *Mailbox) Notify() <-chan struct{} {
	m.sigMu.Lock()
	defer m.sigMu.Unlock()

	if m.sig == nil {
		m.sig = make(chan struct{})
	}
	return m.sig
}

func (m *Mailbox) signal() {
	m.sigMu.Lock()
	defer m.sigMu.Unlock()

	if m.sig != nil {
		close(m.sig)
		m.sig = nil
	}
}

// Watch wakes waiters when the store reports an external write. It is a
// no-op for stores that do not implement Watcher. The watch stops when
// ctx is done.
func (m *Mailbox) Watch(ctx context.Context) error {
	w, ok := m.store.(Watcher)
	if !ok {
		return nil
	}
	if err := w.Watch(ctx, func() {
		m.logger.Debug("store change observed")
		m.signal()
	}); err != nil {
		return err
	}
	m.logger.Debug("watching store for external writes", "location", m.store.Location())
	return nil
}

// Close closes the underlying store.
func (m *Mailbox) Close() error {
	return m.store.Close()
}
