package intelligence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MomentumRationale explains the fallback pick when no score is usable.
const MomentumRationale = "Just start with this one to build momentum. Any progress counts."

// DefaultDailyCapacity is the working minutes assumed per day.
const DefaultDailyCapacity = 480

// Scorer ranks active tasks with one batch model call per user.
type Scorer struct {
	client   llm.Client
	tasks    service.TaskService
	capacity int
	now      func() time.Time
	log      *zap.Logger

	group singleflight.Group
}

type ScorerOption func(*Scorer)

// WithScorerClock fixes the reference time for capacity and due dates.
func WithScorerClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// WithDailyCapacity overrides the minutes available per day.
func WithDailyCapacity(minutes int) ScorerOption {
	return func(s *Scorer) {
		if minutes > 0 {
			s.capacity = minutes
		}
	}
}

func NewScorer(client llm.Client, tasks service.TaskService, log *zap.Logger, opts ...ScorerOption) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scorer{
		client:   client,
		tasks:    tasks,
		capacity: DefaultDailyCapacity,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.Named("scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scoringReply struct {
	Scores []struct {
		TaskID string  `json:"task_id"`
		Score  float64 `json:"score"`
	} `json:"scores"`
	StrategySummary string `json:"strategy_summary"`
}

// RescoreActiveTasks asks the model to score every active task and stores
// the scores. It returns nil when the user has no active tasks. Concurrent
// calls for one user share a single model call.
func (s *Scorer) RescoreActiveTasks(ctx context.Context, userID string) (*contract.ScoringResult, error) {
	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.rescore(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*contract.ScoringResult), nil
}

func (s *Scorer) rescore(ctx context.Context, userID string) (*contract.ScoringResult, error) {
	active, err := s.tasks.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active tasks: %w", err)
	}
	if len(active) == 0 {
		return (*contract.ScoringResult)(nil), nil
	}

	now := s.now()
	capacity, err := s.remainingCapacity(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Complete(ctx, llm.CompleteRequest{
		Task:     llm.TaskScore,
		Messages: []llm.Message{llm.User(scoringPrompt(active, capacity, now))},
	})
	if err != nil {
		return nil, err
	}
	parsed, err := llm.ExtractJSON[scoringReply](resp.Text, nil)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(active))
	for _, t := range active {
		known[t.ID] = true
	}
	result := &contract.ScoringResult{StrategySummary: strings.TrimSpace(parsed.StrategySummary)}
	scores := make(map[string]float64, len(parsed.Scores))
	for _, sc := range parsed.Scores {
		if !known[sc.TaskID] {
			continue
		}
		clamped := math.Max(0, math.Min(100, sc.Score))
		if _, dup := scores[sc.TaskID]; !dup {
			result.Scores = append(result.Scores, contract.TaskScore{TaskID: sc.TaskID, Score: clamped})
		}
		scores[sc.TaskID] = clamped
	}
	sort.SliceStable(result.Scores, func(i, j int) bool { return result.Scores[i].Score > result.Scores[j].Score })

	if len(scores) > 0 {
		if _, err := s.tasks.ApplyRelevanceScores(ctx, userID, scores); err != nil {
			return nil, fmt.Errorf("storing relevance scores: %w", err)
		}
	}
	return result, nil
}

// remainingCapacity is the daily capacity minus minutes of tasks completed
// in the trailing 24 hours, floored at 0.
func (s *Scorer) remainingCapacity(ctx context.Context, userID string, now time.Time) (int, error) {
	done, err := s.tasks.CompletedSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("listing completed tasks: %w", err)
	}
	used := 0
	for _, t := range done {
		if t.EstimatedMinutes != nil {
			used += *t.EstimatedMinutes
		}
	}
	return max(0, s.capacity-used), nil
}

// SuggestNext returns the task to do now. When rescoring fails or nothing
// scores above zero, the first active task is suggested with a momentum
// rationale. It returns nil only when no task is active.
func (s *Scorer) SuggestNext(ctx context.Context, userID string) (*contract.Suggestion, error) {
	active, err := s.tasks.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active tasks: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	result, err := s.RescoreActiveTasks(ctx, userID)
	if err != nil {
		s.log.Warn("rescoring failed, using fallback", zap.String("user_id", userID), zap.Error(err))
	}
	if top, ok := result.Top(); ok {
		for _, t := range active {
			if t.ID == top.TaskID {
				reasoning := result.StrategySummary
				if reasoning == "" {
					reasoning = "This is the most relevant task right now."
				}
				score := top.Score
				return &contract.Suggestion{TaskID: t.ID, Title: t.Title, Reasoning: reasoning, Score: &score}, nil
			}
		}
	}

	first := active[0]
	return &contract.Suggestion{TaskID: first.ID, Title: first.Title, Reasoning: MomentumRationale, Fallback: true}, nil
}

// SuggestStored picks the active task with the highest stored relevance
// without calling the model. Tasks never scored are ignored; with none
// scored above zero it falls back like SuggestNext.
func (s *Scorer) SuggestStored(ctx context.Context, userID string) (*contract.Suggestion, error) {
	active, err := s.tasks.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active tasks: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	var best *domain.Task
	for _, t := range active {
		if t.RelevanceScore == nil || *t.RelevanceScore <= 0 {
			continue
		}
		if best == nil || *t.RelevanceScore > *best.RelevanceScore {
			best = t
		}
	}
	if best == nil {
		first := active[0]
		return &contract.Suggestion{TaskID: first.ID, Title: first.Title, Reasoning: MomentumRationale, Fallback: true}, nil
	}
	score := *best.RelevanceScore
	return &contract.Suggestion{
		TaskID:    best.ID,
		Title:     best.Title,
		Reasoning: "Highest relevance from the last scoring run.",
		Score:     &score,
	}, nil
}

// RecordFeedback stores how the user reacted to a suggestion; the next
// scoring prompt includes it.
func (s *Scorer) RecordFeedback(ctx context.Context, userID, taskID string, fb domain.SuggestionFeedback) error {
	return s.tasks.RecordFeedback(ctx, userID, taskID, fb)
}

func scoringPrompt(active []*domain.Task, capacity int, now time.Time) string {
	var b strings.Builder
	for _, t := range active {
		fmt.Fprintf(&b, "- ID: %s\n  Title: %s\n  Status: %s\n  Priority: %s (%d)\n",
			t.ID, t.Title, t.Status, t.Priority, t.PriorityScore)
		if t.DueDate != nil {
			fmt.Fprintf(&b, "  Due: %s\n", t.DueDate.UTC().Format("2006-01-02 15:04"))
		} else {
			b.WriteString("  Due: none\n")
		}
		if t.EstimatedMinutes != nil {
			fmt.Fprintf(&b, "  Estimated Duration: %d minutes\n", *t.EstimatedMinutes)
		} else {
			b.WriteString("  Estimated Duration: N/A\n")
		}
		fmt.Fprintf(&b, "  Value Score: %d\n  Effort Score: %d\n", t.ValueScore, t.EffortScore)
		if t.SuggestionFeedback != nil {
			fmt.Fprintf(&b, "  Feedback: %s\n", *t.SuggestionFeedback)
		}
		b.WriteString("\n")
	}
	return fmt.Sprintf(scoringPromptTemplate, capacity, now.UTC().Format("2006-01-02 15:04 MST"), b.String())
}
