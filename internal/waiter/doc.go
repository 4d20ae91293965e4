// Package waiter implements the long-poll wait: a caller blocks in
// [Coordinator.Wait] until a message can be taken from the mailbox or the
// timeout elapses, receiving heartbeats through a [ProgressSink] meanwhile.
//
// # Timing
//
// Each pass of the loop checks the mailbox first, so a waiting message
// always wins over a heartbeat or the timeout. Heartbeat N is due at
// N*HeartbeatInterval from the start of the wait, never relative to the
// previous heartbeat, so scheduling jitter does not accumulate. A boundary
// that coincides with the timeout still fires. Between checks the loop
// sleeps until the next poll tick, heartbeat boundary or timeout, whichever
// is first, and wakes early when the mailbox signals a deposit.
//
// With the defaults (30s heartbeats, 1s polling) a 65s wait with no
// message produces heartbeats at 30s and 60s and times out at 65s.
//
// # Testing
//
// The [Clock] is injectable. Tests use a fake whose Sleep advances time
// instantly, which makes the cadence arithmetic deterministic.
package waiter
