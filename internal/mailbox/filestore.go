package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultFileName is the record file used when no path is configured.
const DefaultFileName = "pending_message.json"

// watchDebounce coalesces the burst of events a single write produces.
const watchDebounce = 50 * time.Millisecond

// FileStore keeps the pending message as a single JSON record on disk.
// External producers may write the record directly; see Message for the
// field names.
//
// Save writes a temp file and renames it over the record, so readers never
// see a partial write from this process. Take claims the record by renaming
// it to a per-call name before reading it, so two takers cannot both
// consume one record.
type FileStore struct {
	path string
	mu   sync.Mutex
	seq  atomic.Uint64
}

// NewFileStore creates a FileStore for the record at path. The parent
// directory is created on first Save.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{path: path}
}

// Path returns the record path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Backend() string  { return BackendFile }
func (s *FileStore) Location() string { return s.path }
func (s *FileStore) Close() error     { return nil }

func (s *FileStore) storeError(message string, cause error) *errors.StoreError {
	return errors.NewStoreError(message, cause).WithBackend(BackendFile).WithPath(s.path)
}

func (s *FileStore) Save(msg Message) (bool, error) {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return false, s.storeError("encode record", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, s.storeError("create directory", errors.Join(errors.ErrStoreWrite, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(dir, ".pending-*.tmp")
	if err != nil {
		return false, s.storeError("create temp file", errors.Join(errors.ErrStoreWrite, err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, s.storeError("write temp file", errors.Join(errors.ErrStoreWrite, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, s.storeError("close temp file", errors.Join(errors.ErrStoreWrite, err))
	}

	_, statErr := os.Stat(s.path)
	replaced := statErr == nil

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return false, s.storeError("install record", errors.Join(errors.ErrStoreWrite, err))
	}
	return replaced, nil
}

// Take reads and removes the record. A record that fails to decode is
// left in place and reported as a StoreError wrapping ErrStoreRead, so a
// producer that is still writing gets another chance on the next call.
func (s *FileStore) Take() (Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Message{}, false, nil
		}
		return Message{}, false, s.storeError("read record", errors.Join(errors.ErrStoreRead, err))
	}
	if _, err := decodeRecord(data); err != nil {
		return Message{}, false, s.storeError("decode record", errors.Join(errors.ErrStoreRead, err))
	}

	claim := fmt.Sprintf("%s.claim-%d-%d", s.path, os.Getpid(), s.seq.Add(1))
	if err := os.Rename(s.path, claim); err != nil {
		if os.IsNotExist(err) {
			// Another process took it first.
			return Message{}, false, nil
		}
		return Message{}, false, s.storeError("claim record", errors.Join(errors.ErrStoreRead, err))
	}

	// The record may have been replaced between the read and the rename,
	// so decode what was actually claimed.
	claimed, err := os.ReadFile(claim)
	if err == nil {
		var msg Message
		msg, err = decodeRecord(claimed)
		if err == nil {
			_ = os.Remove(claim)
			return msg, true, nil
		}
	}

	// Put the record back unless a newer one has arrived meanwhile.
	if _, statErr := os.Stat(s.path); os.IsNotExist(statErr) {
		_ = os.Rename(claim, s.path)
	} else {
		_ = os.Remove(claim)
	}
	return Message{}, false, s.storeError("decode claimed record", errors.Join(errors.ErrStoreRead, err))
}

func (s *FileStore) Pending() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, s.storeError("stat record", errors.Join(errors.ErrStoreRead, err))
}

func decodeRecord(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Watch calls fn after the record file is created or written, debounced.
// The record's directory is watched rather than the file itself so that
// rename-based writes and recreation after Take are both observed.
func (s *FileStore) Watch(ctx context.Context, fn func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.storeError("create directory", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mailbox: create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("mailbox: watch directory: %w", err)
	}

	go s.watchLoop(ctx, watcher, fn)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn func()) {
	defer func() { _ = watcher.Close() }()

	target := filepath.Base(s.path)
	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			fn()

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Polling still covers anything the watcher misses.
		}
	}
}
