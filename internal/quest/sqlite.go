package quest

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable ProgressStore. Counters and completion markers
// survive restarts, unlike the default in-memory store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quest_progress (
		user_id     TEXT NOT NULL,
		quest_id    TEXT NOT NULL,
		count       INTEGER NOT NULL DEFAULT 0,
		completed   INTEGER NOT NULL DEFAULT 0,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, quest_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Progress(userID, questID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT count FROM quest_progress WHERE user_id = ? AND quest_id = ?`,
		userID, questID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (s *SQLiteStore) Increment(userID, questID string) (int, error) {
	_, err := s.db.Exec(`
		INSERT INTO quest_progress (user_id, quest_id, count, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, quest_id)
		DO UPDATE SET count = count + 1, updated_at = CURRENT_TIMESTAMP`,
		userID, questID)
	if err != nil {
		return 0, err
	}
	return s.Progress(userID, questID)
}

func (s *SQLiteStore) Completed(userID, questID string) (bool, error) {
	var completed int
	err := s.db.QueryRow(
		`SELECT completed FROM quest_progress WHERE user_id = ? AND quest_id = ?`,
		userID, questID).Scan(&completed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return completed != 0, err
}

func (s *SQLiteStore) MarkCompleted(userID, questID string) error {
	_, err := s.db.Exec(`
		INSERT INTO quest_progress (user_id, quest_id, count, completed, updated_at)
		VALUES (?, ?, 0, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, quest_id)
		DO UPDATE SET completed = 1, updated_at = CURRENT_TIMESTAMP`,
		userID, questID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
