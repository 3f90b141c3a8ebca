package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(gray).
		Padding(1, 2)
	if title != "" {
		return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return box.Render(content)
}

// RelativeDate describes t in calendar days from now: "today", "in 3 days",
// "2 weeks ago". Beyond eight weeks it falls back to the date itself.
func RelativeDate(t, now time.Time) string {
	days := int(math.Round(t.Sub(now).Hours() / 24))
	abs := days
	if abs < 0 {
		abs = -abs
	}

	var span string
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case abs < 14:
		span = plural(abs, "day")
	case abs <= 56:
		span = plural(abs/7, "week")
	default:
		return "on " + t.Format("Jan 2")
	}
	if days > 0 {
		return "in " + span
	}
	return span + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DueStyled colors a due date by urgency.
func DueStyled(due, now time.Time) string {
	text := RelativeDate(due, now)
	switch until := due.Sub(now); {
	case until < 48*time.Hour:
		return StyleAlert.Render(text)
	case until < 7*24*time.Hour:
		return StyleWarn.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// FormatMinutes converts raw minutes into "1h 30m" form.
func FormatMinutes(min int) string {
	if min <= 0 {
		return "0m"
	}
	h, m := min/60, min%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
