package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/oakvale/ledgermap/internal/common"
	"github.com/oakvale/ledgermap/internal/model"
)

// SQLiteStore persists sessions and batch records so uploads survive a
// restart. Account lists and progress records are stored as JSON columns;
// nothing queries inside them.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite-backed session store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path is required", common.ErrMissingConfig)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		upload_time TIMESTAMP NOT NULL,
		account_count INTEGER NOT NULL,
		accounts TEXT NOT NULL,
		columns TEXT NOT NULL,
		raw_sample TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PutSession stores an upload session, replacing any existing row.
func (s *SQLiteStore) PutSession(ctx context.Context, session *model.Session) error {
	accounts, err := json.Marshal(session.Accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	columns, err := json.Marshal(session.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}
	sample, err := json.Marshal(session.RawSample)
	if err != nil {
		return fmt.Errorf("failed to encode raw sample: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, filename, upload_time, account_count, accounts, columns, raw_sample)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Filename, session.UploadTime, session.AccountCount,
		string(accounts), string(columns), string(sample))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves an upload session or ErrSessionNotFound.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		session  model.Session
		upload   time.Time
		accounts string
		columns  string
		sample   string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, upload_time, account_count, accounts, columns, raw_sample
		FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.Filename, &upload, &session.AccountCount, &accounts, &columns, &sample)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session.UploadTime = upload
	if err := json.Unmarshal([]byte(accounts), &session.Accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	if err := json.Unmarshal([]byte(columns), &session.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns: %w", err)
	}
	if err := json.Unmarshal([]byte(sample), &session.RawSample); err != nil {
		return nil, fmt.Errorf("failed to decode raw sample: %w", err)
	}

	return &session, nil
}

// ContainsSession reports whether an upload session exists.
func (s *SQLiteStore) ContainsSession(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return true, nil
}

// DeleteSession removes an upload session. Deleting an unknown id is a
// no-op.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PutBatch stores or replaces a batch progress record.
func (s *SQLiteStore) PutBatch(ctx context.Context, id string, status *model.BatchStatus) error {
	encoded, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode batch status: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO batches (id, status) VALUES (?, ?)`,
		id, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save batch status: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch progress record or ErrSessionNotFound.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.BatchStatus, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM batches WHERE id = ?`, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch status: %w", err)
	}

	var status model.BatchStatus
	if err := json.Unmarshal([]byte(encoded), &status); err != nil {
		return nil, fmt.Errorf("failed to decode batch status: %w", err)
	}
	return &status, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
