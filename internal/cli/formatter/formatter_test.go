package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

func TestRelativeDate(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{0, "today"},
		{day, "tomorrow"},
		{-day, "yesterday"},
		{5 * day, "in 5 days"},
		{-3 * day, "3 days ago"},
		{21 * day, "in 3 weeks"},
		{-28 * day, "4 weeks ago"},
		{90 * day, "on Sep 16"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDate(testNow.Add(tt.offset), testNow))
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "2h", FormatMinutes(120))
	assert.Equal(t, "1h 30m", FormatMinutes(90))
}

func TestTruncID(t *testing.T) {
	assert.Contains(t, TruncID("0123456789abcdef"), "01234567")
	assert.NotContains(t, TruncID("0123456789abcdef"), "89")
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"long cell", "x"}, {"s", "y"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Empty(t, RenderTable(nil, nil))
}

func TestFormatTaskList(t *testing.T) {
	assert.Contains(t, FormatTaskList(nil, testNow), "No active tasks.")

	task := testutil.NewTestTask("Write report",
		testutil.WithPriorityScore(90),
		testutil.WithRelevance(72),
		testutil.WithEstimatedMinutes(90),
		testutil.WithDueDate(testNow.Add(24*time.Hour)))
	out := FormatTaskList([]*domain.Task{task}, testNow)
	for _, want := range []string{"ACTIVE TASKS (1)", "Write report", "72", "1h 30m", "tomorrow"} {
		assert.Contains(t, out, want)
	}
}

func TestFormatSuggestion(t *testing.T) {
	assert.Contains(t, FormatSuggestion(nil), "no active tasks")

	score := 88.0
	out := FormatSuggestion(&contract.Suggestion{Title: "Ship it", Reasoning: "Due today.", Score: &score})
	assert.Contains(t, out, "Ship it")
	assert.Contains(t, out, "relevance 88")
	assert.NotContains(t, out, "newest task")

	out = FormatSuggestion(&contract.Suggestion{Title: "Ship it", Reasoning: "Go.", Fallback: true})
	assert.Contains(t, out, "newest task")
}

func TestChatRenderer_Plain(t *testing.T) {
	r := NewChatRenderer(false)

	out := r.Render(contract.NewChatResponse("s1", "Create task **X**", &contract.PendingConfirmation{Action: "create_task"}))
	assert.Equal(t, "Create task **X**\n\n[Yes] [No] [Edit]\n", out)

	out = r.Render(contract.NewChatResponse("s1", "Done.", nil))
	assert.Equal(t, "Done.\n", out)
}

func TestChatRenderer_StyledKeepsText(t *testing.T) {
	r := NewChatRenderer(true)
	out := r.Render(contract.NewChatResponse("s1", "Hello there", &contract.PendingConfirmation{Action: "create_task"}))
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Yes")
	assert.Contains(t, out, "Edit")
}
