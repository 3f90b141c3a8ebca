package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Role tags a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompleteRequest holds the parameters for a completion call.
type CompleteRequest struct {
	Task        TaskType
	Messages    []Message
	Temperature *float64 // nil uses task default
	MaxTokens   *int     // nil uses task default
}

// CompleteResponse holds the result of a completion call.
type CompleteResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client is the single-call gateway to the text-generation provider:
// ordered messages in, completion text out.
type Client interface {
	// Complete returns the provider's completion. Network failures, timeouts
	// and non-2xx replies come back as transport errors (see IsTransport).
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error)

	// Available reports whether the provider answers at all.
	Available(ctx context.Context) bool
}

// NewClient validates cfg and builds the backend for cfg.Provider.
func NewClient(ctx context.Context, cfg Config, observer Observer) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Provider == ProviderGemini {
		return newGenAIClient(ctx, cfg, observer)
	}
	return NewHTTPClient(cfg, observer), nil
}

// System is shorthand for a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User is shorthand for a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant is shorthand for an assistant-role message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// callSettings resolves per-call parameters against the task defaults.
type callSettings struct {
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func (c Config) settingsFor(req CompleteRequest) callSettings {
	tc := c.Tasks[req.Task]
	s := callSettings{
		temperature: tc.Temperature,
		maxTokens:   tc.MaxTokens,
		timeout:     time.Duration(c.TaskTimeout(req.Task)) * time.Millisecond,
	}
	if req.Temperature != nil {
		s.temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		s.maxTokens = *req.MaxTokens
	}
	return s
}

// runWithRetries drives attempt up to 1+maxRetries times, each under its own
// deadline, and maps the final failure onto the transport sentinels.
func runWithRetries(ctx context.Context, cfg Config, req CompleteRequest, observer Observer,
	attempt func(ctx context.Context, s callSettings) (*CompleteResponse, error),
) (*CompleteResponse, error) {
	start := time.Now()
	s := cfg.settingsFor(req)

	var lastErr error
	for i := 0; i < 1+cfg.MaxRetries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp, err := attempt(attemptCtx, s)
		if err != nil && attemptCtx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		cancel()

		if err == nil {
			resp.LatencyMs = time.Since(start).Milliseconds()
			observer.OnCallComplete(LLMCallEvent{
				Task:      req.Task,
				Model:     cfg.Model,
				LatencyMs: resp.LatencyMs,
				Success:   true,
			})
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	finalErr := classifyFailure(ctx, lastErr, cfg.MaxRetries)
	observer.OnCallComplete(LLMCallEvent{
		Task:      req.Task,
		Model:     cfg.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   false,
		ErrorCode: errorCode(finalErr),
	})
	return nil, finalErr
}

func classifyFailure(ctx context.Context, err error, retries int) error {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, ErrBadStatus), errors.Is(err, ErrEmptyResponse):
		if retries > 0 {
			return fmt.Errorf("%w: %w", ErrRetryExhausted, err)
		}
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
