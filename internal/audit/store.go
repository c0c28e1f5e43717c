// Package audit persists change logs to a SQLite database so mutations
// can be queried long after the in-memory schedule is gone.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"netweave.openmodal.org/internal/changelog"
)

const timestampLayout = time.RFC3339Nano

// Store is a SQLite-backed audit trail of change log entries.
type Store struct {
	DB *sql.DB
}

// Open creates (or opens) the audit database at the given path and
// ensures its schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening audit database: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS change_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			change_event TEXT NOT NULL,
			object_type TEXT NOT NULL,
			old_id TEXT,
			new_id TEXT,
			old_attributes TEXT,
			new_attributes TEXT,
			diff TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_change_log_object ON change_log(object_type, new_id);
		CREATE INDEX IF NOT EXISTS idx_change_log_timestamp ON change_log(timestamp);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, fmt.Errorf("error creating audit schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing audit schema: %w", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// AppendLog appends every entry of a change log to the store in one
// transaction.
func (s *Store) AppendLog(ctx context.Context, log *changelog.ChangeLog) error {
	return s.AppendEntries(ctx, log.Entries())
}

// AppendEntries appends the given entries to the store.
func (s *Store) AppendEntries(ctx context.Context, entries []changelog.Entry) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO change_log (
			timestamp, change_event, object_type, old_id, new_id,
			old_attributes, new_attributes, diff
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, entry := range entries {
		_, err := stmt.ExecContext(ctx,
			entry.Timestamp.Format(timestampLayout),
			string(entry.Event),
			entry.ObjectType,
			entry.OldID,
			entry.NewID,
			entry.OldAttributes,
			entry.NewAttributes,
			entry.Diff,
		)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting change log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Count returns the number of persisted entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM change_log;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting change log entries: %w", err)
	}
	return count, nil
}

// EntriesForObject returns, in insertion order, every entry touching the
// given object, matched on either side of an ID change.
func (s *Store) EntriesForObject(ctx context.Context, objectType, objectID string) ([]changelog.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT timestamp, change_event, object_type, old_id, new_id,
			old_attributes, new_attributes, diff
		FROM change_log
		WHERE object_type = ? AND (old_id = ? OR new_id = ?)
		ORDER BY id;
	`, objectType, objectID, objectID)
	if err != nil {
		return nil, fmt.Errorf("error querying change log: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var entries []changelog.Entry
	for rows.Next() {
		var entry changelog.Entry
		var timestamp, event string
		err := rows.Scan(&timestamp, &event, &entry.ObjectType, &entry.OldID, &entry.NewID,
			&entry.OldAttributes, &entry.NewAttributes, &entry.Diff)
		if err != nil {
			return nil, fmt.Errorf("error scanning change log entry: %w", err)
		}
		entry.Event = changelog.Event(event)
		entry.Timestamp, err = time.Parse(timestampLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("error parsing change log timestamp: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
