package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one finished execution: the terminal outcome plus timing.
type Run struct {
	ID       string
	Title    string
	Success  bool
	Started  time.Time
	Finished time.Time
}

// TaskOutcome is the recorded end state of one task within a run.
type TaskOutcome struct {
	RunID       string
	Name        string
	Status      string
	Error       string
	Duration    time.Duration
	OutputBytes int
}

// Store records finished runs for later inspection. Nothing is ever resumed
// from it; it is an audit log, not execution state.
type Store interface {
	RecordRun(ctx context.Context, run Run, tasks []TaskOutcome) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	RunTasks(ctx context.Context, runID string) ([]TaskOutcome, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the store at the given path, creating
// parent directories as needed. WAL mode keeps concurrent readers cheap.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory store for testing. A shared cache lets
// multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	return open(ctx, "file::memory:?mode=memory&cache=shared")
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys need a PRAGMA with modernc.org/sqlite; the connection
	// string form is not supported.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
