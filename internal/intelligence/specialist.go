package intelligence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/service"
)

// Turn is what a specialist sees of the current message.
type Turn struct {
	UserID  string
	Message string
	// History ends with the current message.
	History []llm.Message
	// Context is extra system guidance for this turn only.
	Context string
}

// Reply is a specialist's answer. Proposal and Choice are applied to the
// conversation by the assistant.
type Reply struct {
	Text     string
	Proposal *Pending
	Choice   *Choice
}

// Specialist handles one intent category.
type Specialist interface {
	Handle(ctx context.Context, turn Turn) (Reply, error)
}

func withHistory(system []llm.Message, turn Turn) []llm.Message {
	msgs := append([]llm.Message(nil), system...)
	if turn.Context != "" {
		msgs = append(msgs, llm.System(turn.Context))
	}
	return append(msgs, turn.History...)
}

func complete(ctx context.Context, client llm.Client, task llm.TaskType, msgs []llm.Message) (string, error) {
	resp, err := client.Complete(ctx, llm.CompleteRequest{Task: task, Messages: msgs})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// QASpecialist answers product questions from the knowledge base.
type QASpecialist struct {
	client llm.Client
}

func NewQASpecialist(client llm.Client) *QASpecialist {
	return &QASpecialist{client: client}
}

func (s *QASpecialist) Handle(ctx context.Context, turn Turn) (Reply, error) {
	text, err := complete(ctx, s.client, llm.TaskRespond, withHistory([]llm.Message{llm.System(qaSystemPrompt())}, turn))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

// GeneralSpecialist handles greetings and casual chat.
type GeneralSpecialist struct {
	client llm.Client
}

func NewGeneralSpecialist(client llm.Client) *GeneralSpecialist {
	return &GeneralSpecialist{client: client}
}

func (s *GeneralSpecialist) Handle(ctx context.Context, turn Turn) (Reply, error) {
	text, err := complete(ctx, s.client, llm.TaskRespond, withHistory([]llm.Message{llm.System(generalPrompt)}, turn))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

// TrackingSpecialist reports progress: counts per status, stale tasks and
// the current top pick.
type TrackingSpecialist struct {
	client    llm.Client
	tasks     service.TaskService
	staleDays int
	now       func() time.Time
}

func NewTrackingSpecialist(client llm.Client, tasks service.TaskService, staleDays int) *TrackingSpecialist {
	if staleDays <= 0 {
		staleDays = 5
	}
	return &TrackingSpecialist{
		client:    client,
		tasks:     tasks,
		staleDays: staleDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *TrackingSpecialist) Handle(ctx context.Context, turn Turn) (Reply, error) {
	all, err := s.tasks.List(ctx, turn.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("listing tasks: %w", err)
	}
	status := s.StatusContext(all)
	text, err := complete(ctx, s.client, llm.TaskRespond,
		withHistory([]llm.Message{llm.System(trackingPrompt + "\n" + status)}, turn))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

var statusLabels = []struct {
	status domain.TaskStatus
	label  string
}{
	{domain.TaskBacklog, "Backlog"},
	{domain.TaskTodo, "To do"},
	{domain.TaskInProgress, "In Progress"},
	{domain.TaskBlocked, "Blocked"},
	{domain.TaskPaused, "Paused"},
	{domain.TaskDone, "Completed"},
}

// StatusContext summarises tasks for the tracking prompt.
func (s *TrackingSpecialist) StatusContext(tasks []*domain.Task) string {
	now := s.now()
	counts := map[domain.TaskStatus]int{}
	var stale []*domain.Task
	var top *domain.Task
	for _, t := range tasks {
		counts[t.Status]++
		if t.IsStale(now, time.Duration(s.staleDays)*24*time.Hour) {
			stale = append(stale, t)
		}
		if t.IsActive() && t.RelevanceScore != nil && (top == nil || *t.RelevanceScore > *top.RelevanceScore) {
			top = t
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })

	var b strings.Builder
	b.WriteString("Current Status:")
	for _, sl := range statusLabels {
		fmt.Fprintf(&b, "\n- %s: %d", sl.label, counts[sl.status])
	}
	fmt.Fprintf(&b, "\n- Stale Tasks (>%d days untouched): %d", s.staleDays, len(stale))
	if len(stale) > 0 {
		b.WriteString("\n\nStale Items:")
		for _, t := range stale[:min(3, len(stale))] {
			fmt.Fprintf(&b, "\n- %s (last updated %s)", t.Title, t.UpdatedAt.Format("2006-01-02"))
		}
	}
	if top != nil {
		fmt.Fprintf(&b, "\n\nTop suggestion right now: %s (relevance %.0f)", top.Title, *top.RelevanceScore)
	}
	return b.String()
}
