package logging

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

const decisionSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	run_id      TEXT NOT NULL,
	pipeline    TEXT NOT NULL,
	stage       TEXT,
	outcome     TEXT NOT NULL,
	reason      TEXT,
	detail_json TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region open

// Open opens the decision log database and runs migrations.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open decision db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(decisionSchema); err != nil {
		return nil, fmt.Errorf("migrate decision log: %w", err)
	}
	return db, nil
}

// #endregion open

// #region log-decision

// LogDecision writes a decision entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (run_id, pipeline, stage, outcome, reason, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Pipeline,
		nullIfEmpty(entry.Stage),
		entry.Outcome,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DetailJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region recent

// Recent returns the newest entries, most recent first.
func Recent(db *sql.DB, limit int) ([]DecisionEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, pipeline, stage, outcome, reason, detail_json, created_at
		 FROM decision_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decision log: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var stage, reason, detail sql.NullString
		var createdAt string
		if err := rows.Scan(&e.RunID, &e.Pipeline, &stage, &e.Outcome, &reason, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		e.Stage = stage.String
		e.Reason = reason.String
		e.DetailJSON = detail.String
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision log: %w", err)
	}
	return entries, nil
}

// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
