package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired palette.
const (
	green  = lipgloss.Color("#8ec07c")
	yellow = lipgloss.Color("#fabd2f")
	red    = lipgloss.Color("#fb4934")
	aqua   = lipgloss.Color("#83a598")
	purple = lipgloss.Color("#d3869b")
	gray   = lipgloss.Color("#928374")
	fg     = lipgloss.Color("#ebdbb2")
	orange = lipgloss.Color("#fe8019")
	chipBg = lipgloss.Color("#504945")
)

// Styles by meaning rather than hue.
var (
	StyleOK     = lipgloss.NewStyle().Foreground(green)
	StyleWarn   = lipgloss.NewStyle().Foreground(yellow)
	StyleAlert  = lipgloss.NewStyle().Foreground(red)
	StyleInfo   = lipgloss.NewStyle().Foreground(aqua)
	StyleAccent = lipgloss.NewStyle().Foreground(purple)
	StyleDim    = lipgloss.NewStyle().Foreground(gray)
	StyleText   = lipgloss.NewStyle().Foreground(fg)
	StyleHeader = lipgloss.NewStyle().Foreground(orange).Bold(true)
	StyleStrong = lipgloss.NewStyle().Foreground(fg).Bold(true)

	// StyleOption renders a quick-reply chip such as "Yes".
	StyleOption = lipgloss.NewStyle().Foreground(fg).Background(chipBg).Padding(0, 1)
)

// PriorityStyle colors a priority label.
func PriorityStyle(p domain.Priority) lipgloss.Style {
	switch p {
	case domain.PriorityHigh:
		return StyleAlert
	case domain.PriorityMedium:
		return StyleWarn
	default:
		return StyleDim
	}
}

// PriorityBadge renders "high 90" in the priority's color.
func PriorityBadge(p domain.Priority, score int) string {
	return PriorityStyle(p).Render(fmt.Sprintf("%s %d", p, score))
}

// StatusPill returns a colored status indicator.
func StatusPill(status domain.TaskStatus) string {
	switch status {
	case domain.TaskBacklog:
		return StyleDim.Render("· backlog")
	case domain.TaskTodo:
		return StyleInfo.Render("○ todo")
	case domain.TaskInProgress:
		return StyleOK.Render("● in progress")
	case domain.TaskBlocked:
		return StyleAlert.Render("✖ blocked")
	case domain.TaskPaused:
		return StyleWarn.Render("‖ paused")
	case domain.TaskDone:
		return StyleDim.Render("✔ done")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len([]rune(upper)))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleStrong.Render(text)
}
