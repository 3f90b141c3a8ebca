package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedJSON(t *testing.T) {
	text := "Sure, I'll set that up.\n```json\n{\"action\": \"create_task\", \"details\": {\"title\": \"Review code\", \"priority_score\": 50}}\n```\nShall I go ahead?"

	d, ok := Extract(text)
	require.True(t, ok)

	want := ActionDescriptor{
		Action:  ActionCreateTask,
		Details: map[string]any{"title": "Review code", "priority_score": float64(50)},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_UntaggedFence(t *testing.T) {
	text := "```\n{\"tool\": \"delete_task\", \"args\": {\"id\": \"abc\"}}\n```"

	d, ok := Extract(text)
	require.True(t, ok)
	assert.Equal(t, ActionDeleteTask, d.Action)
	assert.Equal(t, "abc", d.Details["id"])
}

func TestExtract_RawObjectWithNesting(t *testing.T) {
	text := `pending_confirmation: {"action": "update_task", "details": {"id": "t1", "meta": {"note": "a } inside"}}} let me know`

	d, ok := Extract(text)
	require.True(t, ok)
	assert.Equal(t, ActionUpdateTask, d.Action)
	assert.Equal(t, "t1", d.Details["id"])
	assert.Equal(t, map[string]any{"note": "a } inside"}, d.Details["meta"])
}

func TestExtract_LegacyMarker(t *testing.T) {
	text := `Done! :::{"tool": "complete_task", "args": {"id": "42"}}:::`

	d, ok := Extract(text)
	require.True(t, ok)
	assert.Equal(t, ActionCompleteTask, d.Action)
	assert.Equal(t, "42", d.Details["id"])
}

func TestExtract_MissingDetailsIsEmptyMap(t *testing.T) {
	d, ok := Extract(`{"action": "search_tasks"}`)
	require.True(t, ok)
	assert.Equal(t, ActionSearchTasks, d.Action)
	assert.NotNil(t, d.Details)
	assert.Empty(t, d.Details)
}

func TestExtract_FailedExtractions(t *testing.T) {
	cases := map[string]string{
		"broken json":          `{"tool": "create_task", "args": {"title": "x" ... broken ...`,
		"no braces":            "I created the task for you.",
		"missing action key":   `{"name": "create_task", "args": {}}`,
		"args not a mapping":   `{"tool": "create_task", "args": ["title"]}`,
		"details is a string":  `{"action": "create_task", "details": "Buy milk"}`,
		"empty action string":  `{"action": "  ", "details": {}}`,
		"unterminated fence":   "```json\n{\"action\": ",
		"trailing garbage obj": `{"action": "create_task", "details": {"title": "x"}`,
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := Extract(text)
				assert.False(t, ok)
			})
		})
	}
}

func TestExtract_UnknownActionIsExtractedButInvalid(t *testing.T) {
	d, ok := Extract(`{"action": "drop_database", "details": {}}`)
	require.True(t, ok)
	assert.ErrorIs(t, d.Validate(), ErrUnknownAction)
	assert.False(t, d.Action.Mutating())
}

func TestExtract_FenceFallsBackToRawScan(t *testing.T) {
	text := "```json\n{not json}\n```"

	_, ok := Extract(text)
	assert.False(t, ok)
}

func TestClaimsAction(t *testing.T) {
	assert.True(t, ClaimsAction("I've CREATED the task."))
	assert.True(t, ClaimsAction("Task deleted"))
	assert.True(t, ClaimsAction("added to your list"))
	assert.True(t, ClaimsAction("pending_confirmation: oops"))
	assert.True(t, ClaimsAction("::: nothing :::"))
	assert.False(t, ClaimsAction("What would you like the title to be?"))
}

func TestAction_Mutating(t *testing.T) {
	assert.True(t, ActionCreateTask.Mutating())
	assert.True(t, ActionDeleteTask.Mutating())
	assert.False(t, ActionSearchTasks.Mutating())
	assert.NoError(t, ActionDescriptor{Action: ActionSearchTasks}.Validate())
}

func TestActionDescriptor_CloneIsIndependent(t *testing.T) {
	orig := ActionDescriptor{Action: ActionCreateTask, Details: map[string]any{"title": "a"}}
	cp := orig.Clone()
	cp.Details["title"] = "b"
	assert.Equal(t, "a", orig.Details["title"])
}
