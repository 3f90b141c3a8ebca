package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
)

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id, userID string) (*domain.Task, error)
	// ListByUser returns the user's tasks newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Task, error)
	// ListOpenDueBefore returns not-done tasks of every user due at or before cutoff.
	ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
	ListCompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	SetRelevanceScore(ctx context.Context, id, userID string, score float64) error
	Delete(ctx context.Context, id, userID string) error
}

type ChatRepo interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) error
	GetSession(ctx context.Context, id, userID string) (*domain.ChatSession, error)
	// LatestSession returns the user's most recently updated session.
	LatestSession(ctx context.Context, userID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	AppendMessage(ctx context.Context, m *domain.ChatMessage) error
	// ListMessages returns up to limit most recent messages in chronological
	// order; limit <= 0 returns all.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
	ClearMessages(ctx context.Context, sessionID string) error
}
