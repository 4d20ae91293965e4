package mailbox

import (
	"database/sql"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLiteFile is the database file used when no path is configured.
const DefaultSQLiteFile = "waitroom.db"

var _ Store = &SQLiteStore{}

// SQLiteStore keeps the pending message in a one-row SQLite table. The
// row is pinned to id = 1, so a save always replaces and a take is a
// single DELETE ... RETURNING statement.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLiteFile
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStoreError("open database", err).WithBackend(BackendSQLite).WithPath(path)
	}
	// One connection serializes access within the process and keeps
	// ":memory:" databases shared between calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStoreError("connect to database", err).WithBackend(BackendSQLite).WithPath(path)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initDB(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initDB() error {
	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS pending_message (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		message_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		mode TEXT NOT NULL,
		timestamp TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL DEFAULT ''
	);`

	if _, err := s.db.Exec(createTableSQL); err != nil {
		return s.storeError("create table", err)
	}
	return nil
}

func (s *SQLiteStore) storeError(message string, cause error) *errors.StoreError {
	return errors.NewStoreError(message, cause).WithBackend(BackendSQLite).WithPath(s.path)
}

func (s *SQLiteStore) Backend() string  { return BackendSQLite }
func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(msg Message) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, s.storeError("begin transaction", errors.Join(errors.ErrStoreWrite, err))
	}
	defer func() { _ = tx.Rollback() }()

	var replaced bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM pending_message WHERE id = 1)`).Scan(&replaced); err != nil {
		return false, s.storeError("check pending", errors.Join(errors.ErrStoreWrite, err))
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO pending_message (id, message_id, content, mode, timestamp, origin)
		VALUES (1, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Content, string(msg.Mode), formatTimestamp(msg.Timestamp), msg.Origin)
	if err != nil {
		return false, s.storeError("save message", errors.Join(errors.ErrStoreWrite, err))
	}

	if err := tx.Commit(); err != nil {
		return false, s.storeError("commit", errors.Join(errors.ErrStoreWrite, err))
	}
	return replaced, nil
}

func (s *SQLiteStore) Take() (Message, bool, error) {
	var (
		msg  Message
		mode string
		ts   string
	)
	err := s.db.QueryRow(`DELETE FROM pending_message WHERE id = 1
		RETURNING message_id, content, mode, timestamp, origin`).
		Scan(&msg.ID, &msg.Content, &mode, &ts, &msg.Origin)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, s.storeError("take message", errors.Join(errors.ErrStoreRead, err))
	}

	msg.Mode = Mode(mode)
	// The row is already gone; an unparsable timestamp should not lose the message.
	msg.Timestamp, _ = parseTimestamp(ts)
	return msg, true, nil
}

func (s *SQLiteStore) Pending() (bool, error) {
	var pending bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM pending_message WHERE id = 1)`).Scan(&pending); err != nil {
		return false, s.storeError("check pending", errors.Join(errors.ErrStoreRead, err))
	}
	return pending, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
