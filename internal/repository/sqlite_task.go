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

const taskColumns = `id, user_id, title, description, notes, status, priority,
	priority_score, effort_score, value_score, estimated_minutes,
	start_date, due_date, relevance_score, suggestion_feedback,
	completed_at, created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo on SQLite.
type SQLiteTaskRepo struct {
	db db.DBTX
}

func NewSQLiteTaskRepo(db db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.Notes,
		string(t.Status),
		string(t.Priority),
		t.PriorityScore,
		t.EffortScore,
		t.ValueScore,
		nullableIntToValue(t.EstimatedMinutes),
		nullableTimeToString(t.StartDate),
		nullableTimeToString(t.DueDate),
		nullableFloatToValue(t.RelevanceScore),
		feedbackToValue(t.SuggestionFeedback),
		nullableTimeToString(t.CompletedAt),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	return r.scanTask(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *SQLiteTaskRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status != 'done' AND due_date IS NOT NULL AND due_date <= ?
		ORDER BY user_id, due_date`
	rows, err := r.db.QueryContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("listing due tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListCompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE user_id = ? AND status = 'done' AND completed_at >= ?
		ORDER BY completed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("listing completed tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `UPDATE tasks SET title = ?, description = ?, notes = ?, status = ?, priority = ?,
		priority_score = ?, effort_score = ?, value_score = ?, estimated_minutes = ?,
		start_date = ?, due_date = ?, relevance_score = ?, suggestion_feedback = ?,
		completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.Title,
		t.Description,
		t.Notes,
		string(t.Status),
		string(t.Priority),
		t.PriorityScore,
		t.EffortScore,
		t.ValueScore,
		nullableIntToValue(t.EstimatedMinutes),
		nullableTimeToString(t.StartDate),
		nullableTimeToString(t.DueDate),
		nullableFloatToValue(t.RelevanceScore),
		feedbackToValue(t.SuggestionFeedback),
		nullableTimeToString(t.CompletedAt),
		formatTime(t.UpdatedAt),
		t.ID,
		t.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLiteTaskRepo) SetRelevanceScore(ctx context.Context, id, userID string, score float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET relevance_score = ? WHERE id = ? AND user_id = ?`, score, id, userID)
	if err != nil {
		return fmt.Errorf("setting relevance score: %w", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(res, "task")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteTaskRepo) scanTask(row *sql.Row) (*domain.Task, error) {
	t, err := r.populateTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return t, nil
}

func (r *SQLiteTaskRepo) scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := r.populateTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepo) populateTask(s rowScanner) (*domain.Task, error) {
	var (
		t                               domain.Task
		status, priority                string
		estimated                       sql.NullInt64
		startDate, dueDate, completedAt sql.NullString
		relevance                       sql.NullFloat64
		feedback                        sql.NullString
		createdAtStr, updatedAtStr      string
	)
	err := s.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Notes, &status, &priority,
		&t.PriorityScore, &t.EffortScore, &t.ValueScore, &estimated,
		&startDate, &dueDate, &relevance, &feedback,
		&completedAt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	t.EstimatedMinutes = nullableInt(estimated)
	t.StartDate = parseNullableTime(startDate)
	t.DueDate = parseNullableTime(dueDate)
	t.RelevanceScore = nullableFloat(relevance)
	t.CompletedAt = parseNullableTime(completedAt)
	if feedback.Valid && feedback.String != "" {
		f := domain.SuggestionFeedback(feedback.String)
		t.SuggestionFeedback = &f
	}

	if t.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}

func feedbackToValue(f *domain.SuggestionFeedback) any {
	if f == nil {
		return nil
	}
	return string(*f)
}

func requireAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}
