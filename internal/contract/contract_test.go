package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_LastUserMessage(t *testing.T) {
	req := ChatRequest{Messages: []ChatMessage{
		{Role: "user", Content: "add a task"},
		{Role: "assistant", Content: "Which one?"},
		{Role: "user", Content: "Review code"},
		{Role: "assistant", Content: "Shall I?"},
	}}
	got, ok := req.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "Review code", got)
}

func TestChatRequest_Validate(t *testing.T) {
	err := ChatRequest{}.Validate()
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidRequest, err.Code)

	err = ChatRequest{Messages: []ChatMessage{{Role: "assistant", Content: "hi"}}}.Validate()
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidRequest, err.Code)

	assert.Nil(t, ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}}.Validate())
}

func TestNewChatResponse_OptionsOnlyWhilePending(t *testing.T) {
	plain := NewChatResponse("s1", "Hello!", nil)
	assert.Nil(t, plain.ConfirmationOptions)

	pending := NewChatResponse("s1", "Create it?", &PendingConfirmation{Action: "create_task", Summary: "Create it?"})
	assert.Equal(t, []string{"Yes", "No", "Edit"}, pending.ConfirmationOptions)
}

func TestChatResponse_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewChatResponse("s1", "Hello!", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"Hello!","sessionId":"s1"}`, string(data))
}

func TestScoringResult_Top(t *testing.T) {
	var nilResult *ScoringResult
	_, ok := nilResult.Top()
	assert.False(t, ok)

	zeros := &ScoringResult{Scores: []TaskScore{{TaskID: "a"}, {TaskID: "b"}}}
	_, ok = zeros.Top()
	assert.False(t, ok)

	r := &ScoringResult{Scores: []TaskScore{{TaskID: "a", Score: 40}, {TaskID: "b", Score: 85}, {TaskID: "c", Score: 85}}}
	top, ok := r.Top()
	require.True(t, ok)
	assert.Equal(t, "b", top.TaskID)
}

func TestChatError_Error(t *testing.T) {
	err := &ChatError{Code: ErrServiceUnavailable, Message: "model offline"}
	assert.Equal(t, "SERVICE_UNAVAILABLE: model offline", err.Error())
}
