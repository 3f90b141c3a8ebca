package intelligence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/liminal/internal/dates"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/fuzzy"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/protocol"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
)

const (
	extractionApology = "Sorry, I had trouble turning that into an action. Could you say it again, maybe a little differently?"
	confirmPrompt     = "Shall I go ahead? (yes / no / edit)"
)

// referenceKeys name a task the model could not resolve to an id. For
// complete and delete, "title" is also a reference; for update it is the
// new title.
var referenceKeys = []string{"query", "task", "target", "task_title"}

// TaskSpecialist turns task requests into proposals.
type TaskSpecialist struct {
	client       llm.Client
	tasks        service.TaskService
	exec         *Executor
	contextTasks int
	threshold    float64
}

func NewTaskSpecialist(client llm.Client, tasks service.TaskService, exec *Executor, contextTasks int) *TaskSpecialist {
	if contextTasks <= 0 {
		contextTasks = 10
	}
	return &TaskSpecialist{
		client:       client,
		tasks:        tasks,
		exec:         exec,
		contextTasks: contextTasks,
		threshold:    fuzzy.DefaultThreshold,
	}
}

func (s *TaskSpecialist) Handle(ctx context.Context, turn Turn) (Reply, error) {
	taskContext, err := s.activeContext(ctx, turn.UserID)
	if err != nil {
		return Reply{}, err
	}
	msgs := withHistory([]llm.Message{llm.System(taskPrompt), llm.System(taskContext)}, turn)

	text, err := complete(ctx, s.client, llm.TaskRespond, msgs)
	if err != nil {
		return Reply{}, err
	}
	d, ok := protocol.Extract(text)
	if !ok && protocol.ClaimsAction(text) {
		retry := append(msgs, llm.Assistant(text), llm.System(extractionRetryPrompt))
		text, err = complete(ctx, s.client, llm.TaskRespond, retry)
		if err != nil {
			return Reply{}, err
		}
		if d, ok = protocol.Extract(text); !ok {
			return Reply{Text: extractionApology}, nil
		}
	}
	if !ok {
		return Reply{Text: text}, nil
	}
	if err := d.Validate(); err != nil {
		return Reply{Text: fmt.Sprintf("I can't do %q. I can create, complete, update, delete or search tasks.", string(d.Action))}, nil
	}
	return s.Act(ctx, turn, d)
}

// Act runs searches directly and turns mutations into proposals.
func (s *TaskSpecialist) Act(ctx context.Context, turn Turn, d protocol.ActionDescriptor) (Reply, error) {
	switch d.Action {
	case protocol.ActionSearchTasks:
		query := detailString(d.Details, "query", "title")
		matches, err := s.tasks.Search(ctx, turn.UserID, query, s.threshold)
		if err != nil {
			return Reply{}, fmt.Errorf("searching tasks: %w", err)
		}
		return Reply{Text: formatMatches(query, matches)}, nil

	case protocol.ActionCreateTask:
		if needsCreateDetails(d.Details) && !alreadyAsked(turn.History, detailString(d.Details, "title", "name")) {
			return Reply{Text: askForDetails(detailString(d.Details, "title", "name"))}, nil
		}
		if needsCreateDetails(d.Details) {
			d = d.Clone()
			d.Details["priority_score"] = float64(domain.DefaultScore)
			d.Details["effort_score"] = float64(domain.DefaultScore)
		}
		return s.Propose(ctx, turn.UserID, d)
	}
	return s.resolve(ctx, turn.UserID, d)
}

// Propose validates d and, if it passes, returns it as a proposal.
// Validation problems come back as a clarifying question.
func (s *TaskSpecialist) Propose(ctx context.Context, userID string, d protocol.ActionDescriptor) (Reply, error) {
	prepared, summary, err := s.exec.Prepare(ctx, userID, d)
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Reply{Text: verr.Question}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:     summary + "\n\n" + confirmPrompt,
		Proposal: &Pending{Descriptor: prepared, Summary: summary},
	}, nil
}

// resolve finds the task a complete/update/delete refers to. Only an exact
// title match is proposed without comment; a near match is proposed with an
// explicit "is this the one" question, and several matches become a choice.
func (s *TaskSpecialist) resolve(ctx context.Context, userID string, d protocol.ActionDescriptor) (Reply, error) {
	d = d.Clone()
	keys := referenceKeys
	if d.Action != protocol.ActionUpdateTask {
		keys = append([]string{"title"}, referenceKeys...)
	}
	query := detailString(d.Details, keys...)
	if query == "" && d.Action == protocol.ActionUpdateTask && detailString(d.Details, "id", "task_id") == "" {
		// an update with no id names its target by title
		keys = append([]string{"title"}, referenceKeys...)
		query = detailString(d.Details, "title")
	}

	if id := detailString(d.Details, "id", "task_id"); id != "" {
		_, err := s.tasks.Get(ctx, userID, id)
		switch {
		case err == nil:
			return s.Propose(ctx, userID, d)
		case !errors.Is(err, repository.ErrNotFound):
			return Reply{}, fmt.Errorf("loading task %s: %w", id, err)
		case query == "":
			return Reply{Text: "I couldn't find that task. Which one did you mean?"}, nil
		}
		delete(d.Details, "id")
		delete(d.Details, "task_id")
	}
	if query == "" {
		return Reply{Text: "Which task do you mean?"}, nil
	}

	matches, err := s.tasks.Search(ctx, userID, query, s.threshold)
	if err != nil {
		return Reply{}, fmt.Errorf("searching tasks: %w", err)
	}
	for _, k := range keys {
		delete(d.Details, k)
	}

	switch {
	case len(matches) == 0:
		return Reply{Text: fmt.Sprintf("I couldn't find a task matching '%s'.", query)}, nil

	case len(matches) == 1:
		m := matches[0]
		d.Details["id"] = m.Task.ID
		reply, err := s.Propose(ctx, userID, d)
		if err != nil || reply.Proposal == nil || m.Exact() {
			return reply, err
		}
		reply.Text = fmt.Sprintf("I found '%s' (%.0f%% match). Is this the task you meant?\n\n%s",
			m.Task.Title, m.Closeness, reply.Text)
		return reply, nil
	}

	candidates := make([]*domain.Task, len(matches))
	for i, m := range matches {
		candidates[i] = m.Task
	}
	return Reply{
		Text:   formatCandidates(candidates),
		Choice: &Choice{Action: d.Action, Details: d.Details, Candidates: candidates},
	}, nil
}

func (s *TaskSpecialist) activeContext(ctx context.Context, userID string) (string, error) {
	active, err := s.tasks.ListActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("listing active tasks: %w", err)
	}
	if len(active) == 0 {
		return "No active tasks.", nil
	}
	var b strings.Builder
	b.WriteString("Active tasks:")
	for _, t := range active[:min(s.contextTasks, len(active))] {
		fmt.Fprintf(&b, "\n- %s (ID: %s, Status: %s)", t.Title, t.ID, t.Status)
	}
	return b.String(), nil
}

// needsCreateDetails is true when a create request carries nothing but a title.
func needsCreateDetails(details map[string]any) bool {
	for _, k := range []string{"priority", "priority_score", "effort_score", "value_score",
		"due_date", "due_date_natural", "due", "estimated_minutes"} {
		if v, ok := details[k]; ok && v != nil {
			return false
		}
	}
	return true
}

func askForDetails(title string) string {
	return fmt.Sprintf("I can help with '%s'. Would you like to set a Priority (High/Medium/Low), Effort estimate (1-100), or Due Date (e.g., 'tomorrow', 'Friday', 'Jan 15') for it?", title)
}

// alreadyAsked reports whether the previous assistant turn asked for details
// about title, so a bare create now means "just add it".
func alreadyAsked(history []llm.Message, title string) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleAssistant {
			asked := strings.ToLower(fmt.Sprintf("I can help with '%s'", title))
			return strings.Contains(strings.ToLower(history[i].Content), asked)
		}
	}
	return false
}

func formatMatches(query string, matches []fuzzy.Match) string {
	if len(matches) == 0 {
		return fmt.Sprintf("I couldn't find any tasks matching '%s'.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found for '%s':", query)
	for i, m := range matches {
		fmt.Fprintf(&b, "\n%d) %s (%s", i+1, m.Task.Title, m.Task.Status)
		if m.Task.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", dates.Format(*m.Task.DueDate))
		}
		b.WriteString(")")
	}
	return b.String()
}
