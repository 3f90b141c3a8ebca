package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies every statement in migrations. Statements are idempotent;
// ALTER TABLE ADD COLUMN re-runs are tolerated.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo'
			CHECK(status IN ('backlog','todo','in_progress','blocked','paused','done')),
		priority TEXT NOT NULL DEFAULT 'medium'
			CHECK(priority IN ('high','medium','low')),
		priority_score INTEGER NOT NULL DEFAULT 50 CHECK(priority_score BETWEEN 1 AND 100),
		effort_score INTEGER NOT NULL DEFAULT 50 CHECK(effort_score BETWEEN 1 AND 100),
		value_score INTEGER NOT NULL DEFAULT 50 CHECK(value_score BETWEEN 1 AND 100),
		estimated_minutes INTEGER,
		start_date TEXT,
		due_date TEXT,
		relevance_score REAL,
		suggestion_feedback TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date)`,

	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK(role IN ('user','assistant','system')),
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at)`,
}
