package mailbox

import (
	"context"
	"fmt"
	"sync"
)

// Store is the storage collaborator behind a Mailbox. It holds at most one
// message. Implementations must make Take atomic: a saved message is
// returned by exactly one Take.
type Store interface {
	// Save replaces the resident message. replaced reports whether an
	// unconsumed message was overwritten.
	Save(msg Message) (replaced bool, err error)

	// Take returns and removes the resident message. ok is false when the
	// store is empty, which is not an error.
	Take() (msg Message, ok bool, err error)

	// Pending reports whether a message is resident without consuming it.
	Pending() (bool, error)

	// Backend names the implementation ("memory", "file", "sqlite").
	Backend() string

	// Location describes where records live, for status output.
	Location() string

	Close() error
}

// Watcher is implemented by stores that can observe writes made outside
// this process. fn is called (possibly spuriously) after such a write.
// Watch returns once the watch is established; it stops when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, fn func()) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ValidBackends returns the accepted store backend names.
func ValidBackends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite}
}

// Open constructs the store for backend. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("mailbox: unknown store backend %q", backend)
	}
}

// MemoryStore keeps the pending message in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	msg *Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(msg Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.msg != nil
	s.msg = &msg
	return replaced, nil
}

func (s *MemoryStore) Take() (Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msg == nil {
		return Message{}, false, nil
	}
	msg := *s.msg
	s.msg = nil
	return msg, true, nil
}

func (s *MemoryStore) Pending() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg != nil, nil
}

func (s *MemoryStore) Backend() string  { return BackendMemory }
func (s *MemoryStore) Location() string { return "in-memory" }
func (s *MemoryStore) Close() error     { return nil }
