package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/fuzzy"
)

// ErrAlreadyDone is returned when completing a task that is already done.
var ErrAlreadyDone = errors.New("task is already done")

type TaskService interface {
	Create(ctx context.Context, userID string, f domain.TaskFields) (*domain.Task, error)
	Get(ctx context.Context, userID, id string) (*domain.Task, error)
	// List returns every task of the user, newest first.
	List(ctx context.Context, userID string) ([]*domain.Task, error)
	// ListActive returns tasks that are not done, blocked or paused.
	ListActive(ctx context.Context, userID string) ([]*domain.Task, error)
	Update(ctx context.Context, userID, id string, f domain.TaskFields) (*domain.Task, error)
	Complete(ctx context.Context, userID, id string) (*domain.Task, error)
	// Delete removes the task and returns it as it was.
	Delete(ctx context.Context, userID, id string) (*domain.Task, error)
	// Search fuzzy-matches query against the user's open task titles.
	// A threshold <= 0 uses fuzzy.DefaultThreshold.
	Search(ctx context.Context, userID, query string, threshold float64) ([]fuzzy.Match, error)
	CompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error)
	// ApplyRelevanceScores writes scores keyed by task ID in one transaction.
	// Unknown IDs are skipped; the number of tasks updated is returned.
	ApplyRelevanceScores(ctx context.Context, userID string, scores map[string]float64) (int, error)
	RecordFeedback(ctx context.Context, userID, id string, fb domain.SuggestionFeedback) error
	// ListOpenDueBefore spans all users.
	ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
}

type ChatService interface {
	StartSession(ctx context.Context, userID, title string) (*domain.ChatSession, error)
	GetSession(ctx context.Context, userID, id string) (*domain.ChatSession, error)
	LatestSession(ctx context.Context, userID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error)
	// Append stores a message and bumps the session's UpdatedAt.
	Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (*domain.ChatMessage, error)
	History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
	// PostAlert appends an assistant message to the user's most recent
	// session, creating a "System Alerts" session when there is none.
	PostAlert(ctx context.Context, userID, content string) (*domain.ChatMessage, error)
}
