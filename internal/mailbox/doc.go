// Package mailbox provides the single-slot message holder that a waiting
// agent is woken by.
//
// A [Mailbox] holds at most one pending [Message]. [Mailbox.Deposit]
// replaces whatever is there (last write wins, there is no queue) and
// [Mailbox.TryTake] removes and returns it in one step, so a deposited
// message reaches exactly one taker.
//
// # Storage
//
// The slot itself lives in a [Store]:
//
//   - [MemoryStore]: process memory, for tests and single-process use
//   - [FileStore]: one JSON record on disk that other processes may write
//   - [SQLiteStore]: a one-row SQLite table
//
// The file record format is the compatibility contract for external
// producers:
//
//	{"content": "Review this code", "mode": "challenge",
//	 "timestamp": "2025-06-15T12:00:00", "from": "cli_sender"}
//
// # Waking Waiters
//
// [Mailbox.Notify] hands out a channel that the next deposit closes. A
// waiter grabs the channel, checks TryTake, and then sleeps on the channel
// and its poll timer, so an in-process deposit is seen immediately. For
// the file store, [Mailbox.Watch] uses fsnotify to turn writes from other
// processes into the same signal.
//
// # Basic Usage
//
//	mb := mailbox.New(mailbox.NewFileStore("pending_message.json"))
//
//	err := mb.Deposit(mailbox.Message{
//	    Content: "Review this code for security issues",
//	    Mode:    mailbox.ModeChallenge,
//	    Origin:  mailbox.OriginCLI,
//	})
//
//	if msg, ok := mb.TryTake(); ok {
//	    fmt.Println(msg.Content)
//	}
//
// # Thread Safety
//
// Mailbox is safe for concurrent use. Deposit and TryTake are serialized
// by an internal mutex; the file and SQLite stores are additionally
// atomic across processes.
package mailbox
