package session

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #region port

// KV is the minimal persisted key-value port the session store runs on.
// Implementations are scoped to one repository. Get returns "" for an
// absent key; Clear on an absent key is a no-op.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Clear(key string) error
}

// #endregion port

// #region schema

const kvSchema = `
CREATE TABLE IF NOT EXISTS repo_kv (
	repo_root TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (repo_root, key)
);
`

// #endregion schema

// #region sqlite-kv

// SQLiteKV stores keys in a SQLite table scoped by repo root. No locking is
// held across calls: two hook stages racing on the same record resolve as
// last-writer-wins, which is an accepted limitation of the session record.
type SQLiteKV struct {
	db       *sql.DB
	repoRoot string
}

// OpenKV opens the backing database and runs migrations.
func OpenKV(dbPath, repoRoot string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open kv db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("migrate kv: %w", err)
	}
	return &SQLiteKV{db: db, repoRoot: repoRoot}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// Get reads one key, returning "" when absent.
func (s *SQLiteKV) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM repo_kv WHERE repo_root = ? AND key = ?`, s.repoRoot, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts one key.
func (s *SQLiteKV) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO repo_kv (repo_root, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(repo_root, key) DO UPDATE SET value = excluded.value`,
		s.repoRoot, key, value,
	)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Clear deletes one key if present.
func (s *SQLiteKV) Clear(key string) error {
	if _, err := s.db.Exec(
		`DELETE FROM repo_kv WHERE repo_root = ? AND key = ?`, s.repoRoot, key,
	); err != nil {
		return fmt.Errorf("kv clear %s: %w", key, err)
	}
	return nil
}

// #endregion sqlite-kv
