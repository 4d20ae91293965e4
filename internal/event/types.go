// Package event defines the events waitroom components publish on a [Bus]
// so that observers (status reporting, logging, the server) stay decoupled
// from the mailbox and the wait loop.
//
// Event types follow the "category.action" convention:
//
//   - mailbox.deposited: a message was placed in the mailbox
//   - mailbox.taken: a waiter took the pending message
//   - mailbox.store_error: a store read failed and was swallowed
//   - wait.heartbeat: a heartbeat was emitted during a wait
//   - wait.completed: a wait returned (delivered, timed out or canceled)
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Event type identifiers.
const (
	TypeMessageDeposited = "mailbox.deposited"
	TypeMessageTaken     = "mailbox.taken"
	TypeStoreError       = "mailbox.store_error"
	TypeHeartbeat        = "wait.heartbeat"
	TypeWaitCompleted    = "wait.completed"
)

// MessageDepositedEvent is emitted after a successful Deposit.
type MessageDepositedEvent struct {
	baseEvent
	MessageID string
	Mode      string
	Origin    string
	Replaced  bool // an unconsumed message was overwritten
}

// NewMessageDepositedEvent creates a MessageDepositedEvent.
func NewMessageDepositedEvent(messageID, mode, origin string, replaced bool) MessageDepositedEvent {
	return MessageDepositedEvent{
		baseEvent: newBaseEvent(TypeMessageDeposited),
		MessageID: messageID,
		Mode:      mode,
		Origin:    origin,
		Replaced:  replaced,
	}
}

// MessageTakenEvent is emitted when TryTake hands a message to a caller.
type MessageTakenEvent struct {
	baseEvent
	MessageID string
	Mode      string
}

// NewMessageTakenEvent creates a MessageTakenEvent.
func NewMessageTakenEvent(messageID, mode string) MessageTakenEvent {
	return MessageTakenEvent{
		baseEvent: newBaseEvent(TypeMessageTaken),
		MessageID: messageID,
		Mode:      mode,
	}
}

// StoreErrorEvent is emitted when a store read fails during TryTake.
type StoreErrorEvent struct {
	baseEvent
	Backend string
	Err     error
}

// NewStoreErrorEvent creates a StoreErrorEvent.
func NewStoreErrorEvent(backend string, err error) StoreErrorEvent {
	return StoreErrorEvent{
		baseEvent: newBaseEvent(TypeStoreError),
		Backend:   backend,
		Err:       err,
	}
}

// HeartbeatEvent is emitted for every heartbeat sent during a wait.
type HeartbeatEvent struct {
	baseEvent
	SessionID string
	AgentName string
	Number    int
	Elapsed   time.Duration
	Progress  float64
}

// NewHeartbeatEvent creates a HeartbeatEvent.
func NewHeartbeatEvent(sessionID, agentName string, number int, elapsed time.Duration, progress float64) HeartbeatEvent {
	return HeartbeatEvent{
		baseEvent: newBaseEvent(TypeHeartbeat),
		SessionID: sessionID,
		AgentName: agentName,
		Number:    number,
		Elapsed:   elapsed,
		Progress:  progress,
	}
}

// WaitOutcome describes how a wait ended.
type WaitOutcome string

const (
	OutcomeDelivered WaitOutcome = "delivered"
	OutcomeTimedOut  WaitOutcome = "timed_out"
	OutcomeCanceled  WaitOutcome = "canceled"
)

// WaitCompletedEvent is emitted when a wait returns.
type WaitCompletedEvent struct {
	baseEvent
	SessionID  string
	AgentName  string
	Outcome    WaitOutcome
	Waited     time.Duration
	Heartbeats int
}

// NewWaitCompletedEvent creates a WaitCompletedEvent.
func NewWaitCompletedEvent(sessionID, agentName string, outcome WaitOutcome, waited time.Duration, heartbeats int) WaitCompletedEvent {
	return WaitCompletedEvent{
		baseEvent:  newBaseEvent(TypeWaitCompleted),
		SessionID:  sessionID,
		AgentName:  agentName,
		Outcome:    outcome,
		Waited:     waited,
		Heartbeats: heartbeats,
	}
}
