package intelligence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/dates"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/protocol"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
)

// EventRefresh tells clients to reload their task views.
const EventRefresh = "refresh"

// Notifier pushes fire-and-forget events to a user's connected clients.
type Notifier interface {
	Broadcast(event, userID string)
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Broadcast(string, string) {}

// ValidationError is a field problem phrased as a question for the user.
type ValidationError struct {
	Field    string
	Question string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Question
}

var (
	dueDateKeys   = []string{"due_date", "due_date_natural", "due"}
	startDateKeys = []string{"start_date", "start_date_natural", "start"}
)

// Executor validates descriptors before they are proposed and runs them once
// confirmed.
type Executor struct {
	tasks    service.TaskService
	notifier Notifier
	dates    *dates.Parser
	now      func() time.Time
	log      *zap.Logger
}

type ExecutorOption func(*Executor)

// WithExecutorClock fixes the reference time used for natural dates.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(tasks service.TaskService, notifier Notifier, log *zap.Logger, opts ...ExecutorOption) *Executor {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{
		tasks:    tasks,
		notifier: notifier,
		dates:    dates.NewParser(),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.Named("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prepare validates d and returns the descriptor that will run on
// confirmation together with a human summary of it. Natural-language dates
// are replaced by ISO timestamps so the executed action is the confirmed one.
func (e *Executor) Prepare(ctx context.Context, userID string, d protocol.ActionDescriptor) (protocol.ActionDescriptor, string, error) {
	if err := d.Validate(); err != nil {
		return d, "", err
	}
	d = d.Clone()
	now := e.now()

	switch d.Action {
	case protocol.ActionCreateTask:
		f, warnings, err := e.fieldsFrom(d.Details, now)
		if err != nil {
			return d, "", err
		}
		if f.Title == nil {
			return d, "", &ValidationError{Field: "title", Question: "What should the task be called?"}
		}
		return d, createSummary(f, warnings), nil

	case protocol.ActionCompleteTask, protocol.ActionDeleteTask:
		task, err := e.target(ctx, userID, d)
		if err != nil {
			return d, "", err
		}
		if d.Action == protocol.ActionCompleteTask {
			if task.IsDone() {
				return d, "", &ValidationError{Field: "id", Question: fmt.Sprintf("'%s' is already done. Did you mean a different task?", task.Title)}
			}
			return d, fmt.Sprintf("Mark **%s** as complete.", task.Title), nil
		}
		return d, fmt.Sprintf("Delete **%s**. This can't be undone.", task.Title), nil

	case protocol.ActionUpdateTask:
		task, err := e.target(ctx, userID, d)
		if err != nil {
			return d, "", err
		}
		f, warnings, err := e.fieldsFrom(d.Details, now)
		if err != nil {
			return d, "", err
		}
		if f.Empty() {
			return d, "", &ValidationError{Field: "details", Question: fmt.Sprintf("What would you like to change about '%s'?", task.Title)}
		}
		return d, updateSummary(task, f, warnings), nil
	}
	return d, "", nil
}

// Run executes a confirmed descriptor. Failures come back as readable text;
// a successful mutation broadcasts a refresh for userID.
func (e *Executor) Run(ctx context.Context, userID string, d protocol.ActionDescriptor) string {
	log := e.log.With(zap.String("user_id", userID), zap.String("action", string(d.Action)))

	switch d.Action {
	case protocol.ActionCreateTask:
		f, _, err := e.fieldsFrom(d.Details, e.now())
		if err != nil {
			return "I couldn't create that task: " + describeError(err)
		}
		task, err := e.tasks.Create(ctx, userID, f)
		if err != nil {
			log.Warn("create failed", zap.Error(err))
			return "I couldn't create that task: " + describeError(err)
		}
		e.notifier.Broadcast(EventRefresh, userID)
		return fmt.Sprintf("✓ Created task: '%s' (Priority: %d%s)", task.Title, task.PriorityScore, dueSuffix(task.DueDate))

	case protocol.ActionCompleteTask:
		task, err := e.tasks.Complete(ctx, userID, detailString(d.Details, "id", "task_id"))
		switch {
		case errors.Is(err, service.ErrAlreadyDone):
			return "That task is already done."
		case err != nil:
			log.Warn("complete failed", zap.Error(err))
			return "I couldn't complete that task: " + describeError(err)
		}
		e.notifier.Broadcast(EventRefresh, userID)
		return fmt.Sprintf("✓ Marked '%s' as complete!", task.Title)

	case protocol.ActionUpdateTask:
		f, _, err := e.fieldsFrom(d.Details, e.now())
		if err != nil {
			return "I couldn't update that task: " + describeError(err)
		}
		task, err := e.tasks.Update(ctx, userID, detailString(d.Details, "id", "task_id"), f)
		if err != nil {
			log.Warn("update failed", zap.Error(err))
			return "I couldn't update that task: " + describeError(err)
		}
		e.notifier.Broadcast(EventRefresh, userID)
		return fmt.Sprintf("✓ Updated '%s'", task.Title)

	case protocol.ActionDeleteTask:
		task, err := e.tasks.Delete(ctx, userID, detailString(d.Details, "id", "task_id"))
		if err != nil {
			log.Warn("delete failed", zap.Error(err))
			return "I couldn't delete that task: " + describeError(err)
		}
		e.notifier.Broadcast(EventRefresh, userID)
		return fmt.Sprintf("✓ Deleted '%s'", task.Title)

	case protocol.ActionSearchTasks:
		query := detailString(d.Details, "query", "title")
		matches, err := e.tasks.Search(ctx, userID, query, 0)
		if err != nil {
			log.Warn("search failed", zap.Error(err))
			return "I couldn't search your tasks right now."
		}
		return formatMatches(query, matches)
	}
	return fmt.Sprintf("I can't do %q.", string(d.Action))
}

func (e *Executor) target(ctx context.Context, userID string, d protocol.ActionDescriptor) (*domain.Task, error) {
	id := detailString(d.Details, "id", "task_id")
	if id == "" {
		return nil, &ValidationError{Field: "id", Question: "Which task do you mean?"}
	}
	task, err := e.tasks.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ValidationError{Field: "id", Question: "I couldn't find that task. Which one did you mean?"}
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	d.Details["id"] = task.ID
	return task, nil
}

// fieldsFrom converts loose model details into TaskFields. Date values are
// rewritten in details as RFC3339.
func (e *Executor) fieldsFrom(details map[string]any, now time.Time) (domain.TaskFields, []string, error) {
	var f domain.TaskFields
	var warnings []string

	if s := detailString(details, "title", "name"); s != "" {
		f.Title = &s
	}
	if s := detailString(details, "description"); s != "" {
		f.Description = &s
	}
	if s := detailString(details, "notes", "note"); s != "" {
		f.Notes = &s
	}

	if s := detailString(details, "status"); s != "" {
		status, ok := domain.ParseTaskStatus(s)
		if !ok {
			return f, nil, &ValidationError{Field: "status", Question: fmt.Sprintf("I don't know the status %q. Should it be backlog, todo, in progress, blocked, paused or done?", s)}
		}
		f.Status = &status
	}

	if v, ok := details["priority"]; ok && v != nil {
		if n, isNum := toInt(v); isNum {
			if n < domain.MinScore || n > domain.MaxScore {
				return f, nil, &ValidationError{Field: "priority", Question: "Priority needs to be High, Medium, Low or a number from 1 to 100. Which would you like?"}
			}
			f.PriorityScore = &n
		} else {
			label, ok := domain.ParsePriority(fmt.Sprint(v))
			if !ok {
				return f, nil, &ValidationError{Field: "priority", Question: "Should the priority be High, Medium or Low?"}
			}
			f.Priority = &label
		}
	}

	scores := []struct {
		key, label string
		dst        **int
	}{
		{"priority_score", "Priority", &f.PriorityScore},
		{"effort_score", "Effort", &f.EffortScore},
		{"value_score", "Value", &f.ValueScore},
	}
	for _, s := range scores {
		v, ok := details[s.key]
		if !ok || v == nil {
			continue
		}
		n, isNum := toInt(v)
		if !isNum || n < domain.MinScore || n > domain.MaxScore {
			return f, nil, &ValidationError{Field: s.key, Question: fmt.Sprintf("%s needs to be a number from 1 to 100. What would you like it to be?", s.label)}
		}
		*s.dst = &n
	}

	for _, key := range []string{"estimated_minutes", "estimated_duration", "duration_minutes"} {
		v, ok := details[key]
		if !ok || v == nil {
			continue
		}
		n, isNum := toInt(v)
		if !isNum || n < 0 {
			return f, nil, &ValidationError{Field: "estimated_minutes", Question: "How many minutes do you think it will take?"}
		}
		f.EstimatedMinutes = &n
		break
	}

	due, err := e.resolveDate(details, dueDateKeys, "due_date", now)
	if err != nil {
		return f, nil, err
	}
	if due != nil {
		f.DueDate = due
		if dates.IsPast(*due, now) {
			warnings = append(warnings, fmt.Sprintf("The due date %s is in the past.", dates.Format(*due)))
		}
	}
	start, err := e.resolveDate(details, startDateKeys, "start_date", now)
	if err != nil {
		return f, nil, err
	}
	if start != nil {
		f.StartDate = start
	}
	return f, warnings, nil
}

// resolveDate parses the first present key and stores the result under
// canonical, dropping the other spellings.
func (e *Executor) resolveDate(details map[string]any, keys []string, canonical string, now time.Time) (*time.Time, error) {
	raw := detailString(details, keys...)
	if raw == "" {
		return nil, nil
	}
	t, err := e.dates.Parse(raw, now)
	if err != nil {
		field := strings.TrimSuffix(canonical, "_date")
		return nil, &ValidationError{
			Field:    canonical,
			Question: fmt.Sprintf("I couldn't understand the %s date %q. Could you say it another way, like 'Friday' or '2025-07-01'?", field, raw),
		}
	}
	for _, k := range keys {
		delete(details, k)
	}
	details[canonical] = t.Format(time.RFC3339)
	return &t, nil
}

func createSummary(f domain.TaskFields, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create task **%s**", *f.Title)
	if f.PriorityScore != nil {
		fmt.Fprintf(&b, "\n- Priority: %s (%d)", domain.PriorityForScore(*f.PriorityScore), *f.PriorityScore)
	} else if f.Priority != nil {
		fmt.Fprintf(&b, "\n- Priority: %s", *f.Priority)
	}
	if f.EffortScore != nil {
		fmt.Fprintf(&b, "\n- Effort: %d", *f.EffortScore)
	}
	if f.ValueScore != nil {
		fmt.Fprintf(&b, "\n- Value: %d", *f.ValueScore)
	}
	if f.EstimatedMinutes != nil {
		fmt.Fprintf(&b, "\n- Estimate: %d min", *f.EstimatedMinutes)
	}
	if f.StartDate != nil {
		fmt.Fprintf(&b, "\n- Starts: %s", dates.Format(*f.StartDate))
	}
	if f.DueDate != nil {
		fmt.Fprintf(&b, "\n- Due: %s", dates.Format(*f.DueDate))
	}
	writeWarnings(&b, warnings)
	return b.String()
}

func updateSummary(task *domain.Task, f domain.TaskFields, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Update **%s**", task.Title)
	if f.Title != nil {
		fmt.Fprintf(&b, "\n- Title: %s", *f.Title)
	}
	if f.Status != nil {
		fmt.Fprintf(&b, "\n- Status: %s → %s", task.Status, *f.Status)
	}
	if f.PriorityScore != nil {
		fmt.Fprintf(&b, "\n- Priority: %d → %d", task.PriorityScore, *f.PriorityScore)
	} else if f.Priority != nil {
		fmt.Fprintf(&b, "\n- Priority: %s → %s", task.Priority, *f.Priority)
	}
	if f.EffortScore != nil {
		fmt.Fprintf(&b, "\n- Effort: %d → %d", task.EffortScore, *f.EffortScore)
	}
	if f.ValueScore != nil {
		fmt.Fprintf(&b, "\n- Value: %d → %d", task.ValueScore, *f.ValueScore)
	}
	if f.EstimatedMinutes != nil {
		fmt.Fprintf(&b, "\n- Estimate: %d min", *f.EstimatedMinutes)
	}
	if f.StartDate != nil {
		fmt.Fprintf(&b, "\n- Starts: %s", dates.Format(*f.StartDate))
	}
	if f.DueDate != nil {
		fmt.Fprintf(&b, "\n- Due: %s", dates.Format(*f.DueDate))
	}
	if f.Description != nil {
		b.WriteString("\n- Description updated")
	}
	if f.Notes != nil {
		b.WriteString("\n- Notes updated")
	}
	writeWarnings(&b, warnings)
	return b.String()
}

func writeWarnings(b *strings.Builder, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(b, "\n\n⚠ %s", w)
	}
}

func dueSuffix(due *time.Time) string {
	if due == nil {
		return ""
	}
	return ", Due: " + dates.Format(*due)
}

const genericFailure = "something went wrong on my side. Please try again."

// describeError turns err into text for the user. Errors it does not
// recognise are reported generically; callers log the original.
func describeError(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Question
	case errors.Is(err, repository.ErrNotFound):
		return "it no longer exists."
	case errors.Is(err, domain.ErrInvalidScore):
		return "scores must be between 1 and 100."
	case errors.Is(err, domain.ErrTitleRequired):
		return "a title is required."
	}
	return genericFailure
}

// detailString returns the first non-empty string value among keys.
func detailString(details map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := details[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// toInt accepts JSON numbers and numeric strings.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(math.Round(n)), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
