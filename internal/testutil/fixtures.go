package testutil

import (
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/google/uuid"
)

// TestUserID owns fixtures unless a test overrides it.
const TestUserID = "user-test"

type TaskOption func(*domain.Task)

func WithUser(userID string) TaskOption {
	return func(t *domain.Task) {
		t.UserID = userID
	}
}

func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
		if s == domain.TaskDone && t.CompletedAt == nil {
			now := t.UpdatedAt
			t.CompletedAt = &now
		}
	}
}

func WithPriorityScore(score int) TaskOption {
	return func(t *domain.Task) {
		t.PriorityScore = score
		t.Priority = domain.PriorityForScore(score)
	}
}

func WithScores(effort, value int) TaskOption {
	return func(t *domain.Task) {
		t.EffortScore = effort
		t.ValueScore = value
	}
}

func WithDueDate(d time.Time) TaskOption {
	return func(t *domain.Task) {
		t.DueDate = &d
	}
}

func WithEstimatedMinutes(m int) TaskOption {
	return func(t *domain.Task) {
		t.EstimatedMinutes = &m
	}
}

func WithCreatedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.CreatedAt = at
		t.UpdatedAt = at
	}
}

func WithUpdatedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.UpdatedAt = at
	}
}

func WithCompletedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.Status = domain.TaskDone
		t.CompletedAt = &at
	}
}

func WithRelevance(score float64) TaskOption {
	return func(t *domain.Task) {
		t.RelevanceScore = &score
	}
}

func WithFeedback(f domain.SuggestionFeedback) TaskOption {
	return func(t *domain.Task) {
		t.SuggestionFeedback = &f
	}
}

func WithDescription(d string) TaskOption {
	return func(t *domain.Task) {
		t.Description = d
	}
}

// NewTestTask builds a todo task with mid-range scores for TestUserID.
func NewTestTask(title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:            uuid.New().String(),
		UserID:        TestUserID,
		Title:         title,
		Status:        domain.TaskTodo,
		Priority:      domain.PriorityMedium,
		PriorityScore: domain.DefaultScore,
		EffortScore:   domain.DefaultScore,
		ValueScore:    domain.DefaultScore,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type SessionOption func(*domain.ChatSession)

func WithSessionUpdatedAt(at time.Time) SessionOption {
	return func(s *domain.ChatSession) {
		s.UpdatedAt = at
	}
}

func NewTestChatSession(userID, title string, opts ...SessionOption) *domain.ChatSession {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
