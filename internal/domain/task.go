package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTitleRequired = errors.New("task title is required")
	ErrInvalidScore  = errors.New("score must be between 1 and 100")
	ErrInvalidStatus = errors.New("invalid task status")
)

const (
	MinScore = 1
	MaxScore = 100

	// DefaultScore is used for effort, value and priority when unset.
	DefaultScore = 50
)

type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Notes       string
	Status      TaskStatus

	Priority      Priority
	PriorityScore int
	EffortScore   int
	ValueScore    int

	EstimatedMinutes *int
	StartDate        *time.Time
	DueDate          *time.Time

	RelevanceScore     *float64
	SuggestionFeedback *SuggestionFeedback

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFields is a partial update; nil fields are left untouched.
type TaskFields struct {
	Title              *string
	Description        *string
	Notes              *string
	Status             *TaskStatus
	Priority           *Priority
	PriorityScore      *int
	EffortScore        *int
	ValueScore         *int
	EstimatedMinutes   *int
	StartDate          *time.Time
	DueDate            *time.Time
	SuggestionFeedback *SuggestionFeedback
}

// Empty reports whether f carries no changes.
func (f TaskFields) Empty() bool {
	return f == TaskFields{}
}

func (t *Task) IsDone() bool {
	return t.Status == TaskDone
}

// IsActive reports whether t is eligible for a "do this now" suggestion.
func (t *Task) IsActive() bool {
	switch t.Status {
	case TaskDone, TaskBlocked, TaskPaused:
		return false
	}
	return true
}

// IsStale reports whether an open task has not been touched for longer than age.
func (t *Task) IsStale(now time.Time, age time.Duration) bool {
	return !t.IsDone() && now.Sub(t.UpdatedAt) > age
}

// MarkDone moves t to done and stamps CompletedAt.
func (t *Task) MarkDone(now time.Time) {
	t.Status = TaskDone
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
}

// Apply validates f and copies it onto t. Priority label and score are kept
// consistent: an explicit score wins and relabels, a bare label sets the
// label's floor score.
func (t *Task) Apply(f TaskFields, now time.Time) error {
	if err := f.Validate(); err != nil {
		return err
	}

	if f.Title != nil {
		t.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Notes != nil {
		t.Notes = *f.Notes
	}
	if f.EffortScore != nil {
		t.EffortScore = *f.EffortScore
	}
	if f.ValueScore != nil {
		t.ValueScore = *f.ValueScore
	}
	if f.EstimatedMinutes != nil {
		t.EstimatedMinutes = f.EstimatedMinutes
	}
	if f.StartDate != nil {
		t.StartDate = f.StartDate
	}
	if f.DueDate != nil {
		t.DueDate = f.DueDate
	}
	if f.SuggestionFeedback != nil {
		t.SuggestionFeedback = f.SuggestionFeedback
	}

	switch {
	case f.PriorityScore != nil:
		t.PriorityScore = *f.PriorityScore
		t.Priority = PriorityForScore(t.PriorityScore)
	case f.Priority != nil:
		t.Priority = *f.Priority
		t.PriorityScore = ScoreForPriority(t.Priority)
	}

	if f.Status != nil {
		if *f.Status == TaskDone {
			t.MarkDone(now)
		} else {
			t.Status = *f.Status
			t.CompletedAt = nil
		}
	}

	t.UpdatedAt = now
	return nil
}

// Validate checks ranges without touching any task.
func (f TaskFields) Validate() error {
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return ErrTitleRequired
	}
	for name, v := range map[string]*int{
		"priority_score": f.PriorityScore,
		"effort_score":   f.EffortScore,
		"value_score":    f.ValueScore,
	} {
		if v != nil && (*v < MinScore || *v > MaxScore) {
			return fmt.Errorf("%s=%d: %w", name, *v, ErrInvalidScore)
		}
	}
	if f.Status != nil && !ValidTaskStatuses[*f.Status] {
		return fmt.Errorf("%q: %w", string(*f.Status), ErrInvalidStatus)
	}
	if f.EstimatedMinutes != nil && *f.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated minutes must not be negative")
	}
	return nil
}

// NewTask builds a backlog-ready task from creation fields.
func NewTask(id, userID string, f TaskFields, now time.Time) (*Task, error) {
	if f.Title == nil || strings.TrimSpace(*f.Title) == "" {
		return nil, ErrTitleRequired
	}
	t := &Task{
		ID:            id,
		UserID:        userID,
		Status:        TaskTodo,
		Priority:      PriorityMedium,
		PriorityScore: DefaultScore,
		EffortScore:   DefaultScore,
		ValueScore:    DefaultScore,
		CreatedAt:     now,
	}
	if err := t.Apply(f, now); err != nil {
		return nil, err
	}
	return t, nil
}

// PriorityForScore maps a 1-100 score onto a label.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 67:
		return PriorityHigh
	case score >= 34:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ScoreForPriority is the score a bare label implies.
func ScoreForPriority(p Priority) int {
	switch p {
	case PriorityHigh:
		return 90
	case PriorityLow:
		return 30
	default:
		return 60
	}
}

func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
