package server

import (
	"sync/atomic"

	"github.com/Iron-Ham/waitroom/internal/event"
)

// Stats counts activity observed on the event bus since the server started.
type Stats struct {
	deposits    atomic.Int64
	overwritten atomic.Int64
	delivered   atomic.Int64
	timedOut    atomic.Int64
	canceled    atomic.Int64
	heartbeats  atomic.Int64
	storeErrors atomic.Int64
	activeWaits atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats, served at GET /stats.
type StatsSnapshot struct {
	Deposits    int64 `json:"deposits"`
	Overwritten int64 `json:"overwritten"`
	Delivered   int64 `json:"delivered"`
	TimedOut    int64 `json:"timed_out"`
	Canceled    int64 `json:"canceled"`
	Heartbeats  int64 `json:"heartbeats"`
	StoreErrors int64 `json:"store_errors"`
	ActiveWaits int64 `json:"active_waits"`
}

// Attach subscribes the counters to bus.
func (s *Stats) Attach(bus *event.Bus) {
	bus.Subscribe(event.TypeMessageDeposited, func(e event.Event) {
		s.deposits.Add(1)
		if d, ok := e.(event.MessageDepositedEvent); ok && d.Replaced {
			s.overwritten.Add(1)
		}
	})
	bus.Subscribe(event.TypeHeartbeat, func(event.Event) {
		s.heartbeats.Add(1)
	})
	bus.Subscribe(event.TypeStoreError, func(event.Event) {
		s.storeErrors.Add(1)
	})
	bus.Subscribe(event.TypeWaitCompleted, func(e event.Event) {
		c, ok := e.(event.WaitCompletedEvent)
		if !ok {
			return
		}
		switch c.Outcome {
		case event.OutcomeDelivered:
			s.delivered.Add(1)
		case event.OutcomeCanceled:
			s.canceled.Add(1)
		default:
			s.timedOut.Add(1)
		}
	})
}

// Snapshot returns the current counts.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Deposits:    s.deposits.Load(),
		Overwritten: s.overwritten.Load(),
		Delivered:   s.delivered.Load(),
		TimedOut:    s.timedOut.Load(),
		Canceled:    s.canceled.Load(),
		Heartbeats:  s.heartbeats.Load(),
		StoreErrors: s.storeErrors.Load(),
		ActiveWaits: s.activeWaits.Load(),
	}
}
