package domain

type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskPaused     TaskStatus = "paused"
	TaskDone       TaskStatus = "done"
)

// ValidTaskStatuses is the canonical set of accepted status strings.
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskBacklog: true, TaskTodo: true, TaskInProgress: true,
	TaskBlocked: true, TaskPaused: true, TaskDone: true,
}

// ParseTaskStatus accepts canonical values plus the spellings people type
// ("in progress", "in-progress", "complete").
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch normalizeWord(s) {
	case "backlog", "threshold":
		return TaskBacklog, true
	case "todo", "to_do":
		return TaskTodo, true
	case "in_progress", "inprogress", "doing", "started":
		return TaskInProgress, true
	case "blocked":
		return TaskBlocked, true
	case "paused", "on_hold":
		return TaskPaused, true
	case "done", "complete", "completed", "finished":
		return TaskDone, true
	}
	return "", false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) (Priority, bool) {
	switch normalizeWord(s) {
	case "high", "urgent", "critical":
		return PriorityHigh, true
	case "medium", "normal", "med":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

// SuggestionFeedback records how the user reacted to a "do this now" pick.
type SuggestionFeedback string

const (
	FeedbackAccepted  SuggestionFeedback = "accepted"
	FeedbackDismissed SuggestionFeedback = "dismissed"
	FeedbackSnoozed   SuggestionFeedback = "snoozed"
)

func ParseSuggestionFeedback(s string) (SuggestionFeedback, bool) {
	switch f := SuggestionFeedback(normalizeWord(s)); f {
	case FeedbackAccepted, FeedbackDismissed, FeedbackSnoozed:
		return f, true
	}
	return "", false
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)
