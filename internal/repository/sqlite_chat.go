package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/liminal/internal/db"
	"github.com/alexanderramin/liminal/internal/domain"
)

// SQLiteChatRepo implements ChatRepo on SQLite.
type SQLiteChatRepo struct {
	db db.DBTX
}

func NewSQLiteChatRepo(db db.DBTX) *SQLiteChatRepo {
	return &SQLiteChatRepo{db: db}
}

func (r *SQLiteChatRepo) CreateSession(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Title, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting chat session: %w", err)
	}
	return nil
}

func (r *SQLiteChatRepo) GetSession(ctx context.Context, id, userID string) (*domain.ChatSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions WHERE id = ? AND user_id = ?`,
		id, userID)
	return r.scanSession(row)
}

func (r *SQLiteChatRepo) LatestSession(ctx context.Context, userID string) (*domain.ChatSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions
		WHERE user_id = ? ORDER BY updated_at DESC LIMIT 1`, userID)
	return r.scanSession(row)
}

func (r *SQLiteChatRepo) ListSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chat_sessions
		WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ChatSession
	for rows.Next() {
		s, err := r.populateSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chat session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteChatRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touching chat session: %w", err)
	}
	return requireAffected(res, "chat session")
}

func (r *SQLiteChatRepo) AppendMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Role), m.Content, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

func (r *SQLiteChatRepo) ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	query := `SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at, rowid AS seq FROM chat_messages
			WHERE session_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?
		) ORDER BY created_at, seq`
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var role, createdAtStr string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		m.Role = domain.ChatRole(role)
		if m.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (r *SQLiteChatRepo) ClearMessages(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing chat messages: %w", err)
	}
	return nil
}

func (r *SQLiteChatRepo) scanSession(row *sql.Row) (*domain.ChatSession, error) {
	s, err := r.populateSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning chat session: %w", err)
	}
	return s, nil
}

func (r *SQLiteChatRepo) populateSession(sc rowScanner) (*domain.ChatSession, error) {
	var s domain.ChatSession
	var createdAtStr, updatedAtStr string
	if err := sc.Scan(&s.ID, &s.UserID, &s.Title, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}
