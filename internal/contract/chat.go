package contract

import "strings"

// ChatMessage is one turn as the chat surface sees it.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages  []ChatMessage `json:"messages"`
	SessionID string        `json:"sessionId,omitempty"`
}

// LastUserMessage returns the content of the newest user turn.
func (r ChatRequest) LastUserMessage() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" && strings.TrimSpace(r.Messages[i].Content) != "" {
			return r.Messages[i].Content, true
		}
	}
	return "", false
}

// Validate rejects requests the assistant cannot answer.
func (r ChatRequest) Validate() *ChatError {
	if len(r.Messages) == 0 {
		return &ChatError{Code: ErrInvalidRequest, Message: "messages must not be empty"}
	}
	if _, ok := r.LastUserMessage(); !ok {
		return &ChatError{Code: ErrInvalidRequest, Message: "no user message to answer"}
	}
	return nil
}

// PendingConfirmation describes the action waiting for a yes or no.
type PendingConfirmation struct {
	Action  string `json:"action"`
	Summary string `json:"summary"`
}

type ChatResponse struct {
	Content             string               `json:"content"`
	SessionID           string               `json:"sessionId"`
	PendingConfirmation *PendingConfirmation `json:"pendingConfirmation,omitempty"`
	ConfirmationOptions []string             `json:"confirmationOptions,omitempty"`
}

// NewChatResponse builds a reply. Options are attached only while a
// confirmation is outstanding.
func NewChatResponse(sessionID, content string, pending *PendingConfirmation) *ChatResponse {
	resp := &ChatResponse{Content: content, SessionID: sessionID, PendingConfirmation: pending}
	if pending != nil {
		resp.ConfirmationOptions = ConfirmationOptions()
	}
	return resp
}

// ConfirmationOptions returns the quick replies offered with a pending action.
func ConfirmationOptions() []string {
	return []string{"Yes", "No", "Edit"}
}

type ChatErrorCode string

const (
	ErrInvalidRequest     ChatErrorCode = "INVALID_REQUEST"
	ErrServiceUnavailable ChatErrorCode = "SERVICE_UNAVAILABLE"
	ErrSessionNotFound    ChatErrorCode = "SESSION_NOT_FOUND"
	ErrInternalError      ChatErrorCode = "INTERNAL_ERROR"
)

type ChatError struct {
	Code    ChatErrorCode `json:"code"`
	Message string        `json:"message"`
}

func (e *ChatError) Error() string {
	return string(e.Code) + ": " + e.Message
}
