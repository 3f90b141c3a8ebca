package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
)

// FormatTaskList renders active tasks with their priority, relevance and due
// date.
func FormatTaskList(tasks []*domain.Task, now time.Time) string {
	if len(tasks) == 0 {
		return Dim("No active tasks.") + "\n"
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		relevance := Dim("--")
		if t.RelevanceScore != nil {
			relevance = StyleAccent.Render(fmt.Sprintf("%.0f", *t.RelevanceScore))
		}
		due := Dim("--")
		if t.DueDate != nil {
			due = DueStyled(*t.DueDate, now)
		}
		estimate := Dim("--")
		if t.EstimatedMinutes != nil {
			estimate = FormatMinutes(*t.EstimatedMinutes)
		}
		rows = append(rows, []string{
			TruncID(t.ID),
			StyleText.Render(t.Title),
			StatusPill(t.Status),
			PriorityBadge(t.Priority, t.PriorityScore),
			relevance,
			estimate,
			due,
		})
	}

	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Active tasks (%d)", len(tasks))))
	b.WriteString("\n\n")
	b.WriteString(RenderTable([]string{"ID", "TITLE", "STATUS", "PRIORITY", "RELEVANCE", "EST", "DUE"}, rows))
	return b.String()
}

// FormatSuggestion renders the "do this now" pick.
func FormatSuggestion(s *contract.Suggestion) string {
	if s == nil {
		return Dim("Nothing to suggest: no active tasks.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Bold(s.Title))
	if s.Score != nil {
		b.WriteString("  " + StyleAccent.Render(fmt.Sprintf("(relevance %.0f)", *s.Score)))
	}
	b.WriteString("\n\n")
	b.WriteString(StyleText.Render(s.Reasoning))
	if s.Fallback {
		b.WriteString("\n" + Dim("(no ranking available, picked your newest task)"))
	}
	return RenderBox("Do this now", b.String()) + "\n"
}
