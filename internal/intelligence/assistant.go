package intelligence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/protocol"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
)

// ErrServiceUnavailable wraps provider transport failures for the chat surface.
var ErrServiceUnavailable = errors.New("assistant is temporarily unavailable")

const (
	emptyReply      = "Sorry, I didn't catch that. Could you rephrase?"
	choiceCancelled = "Okay, never mind. What else can I help with?"
)

// ChatStore persists transcript messages. service.ChatService satisfies it.
type ChatStore interface {
	Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (*domain.ChatMessage, error)
}

// Assistant dispatches one user message: pending confirmation first, then a
// pending numbered choice, then intent classification and a specialist.
type Assistant struct {
	router      *Router
	tasks       *TaskSpecialist
	specialists map[Intent]Specialist
	exec        *Executor
	store       ChatStore
	log         *zap.Logger
}

// AssistantConfig carries the tunables the specialists need.
type AssistantConfig struct {
	ContextTasks int
	StaleDays    int
}

type AssistantOption func(*Assistant)

// WithChatStore appends both sides of every exchange to the conversation's session.
func WithChatStore(store ChatStore) AssistantOption {
	return func(a *Assistant) { a.store = store }
}

func NewAssistant(client llm.Client, tasks service.TaskService, exec *Executor, cfg AssistantConfig, log *zap.Logger, opts ...AssistantOption) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	taskSpecialist := NewTaskSpecialist(client, tasks, exec, cfg.ContextTasks)
	a := &Assistant{
		router: NewRouter(client),
		tasks:  taskSpecialist,
		specialists: map[Intent]Specialist{
			IntentTask:     taskSpecialist,
			IntentQA:       NewQASpecialist(client),
			IntentTracking: NewTrackingSpecialist(client, tasks, cfg.StaleDays),
			IntentChat:     NewGeneralSpecialist(client),
		},
		exec: exec,
		log:  log.Named("assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle answers the newest user message in msgs. A single message is
// appended to the conversation; a longer list replaces its transcript.
// Provider failures are returned wrapped in ErrServiceUnavailable.
func (a *Assistant) Handle(ctx context.Context, conv *Conversation, msgs []llm.Message) (*contract.ChatResponse, error) {
	conv.turn.Lock()
	defer conv.turn.Unlock()

	conv.absorb(msgs)
	text := lastUserText(conv.history)
	if text == "" {
		return a.respond(conv, emptyReply), nil
	}
	a.persist(ctx, conv, domain.RoleUser, text)

	reply, err := a.dispatch(ctx, conv, text)
	if err != nil {
		if llm.IsTransport(err) {
			a.log.Warn("provider unavailable", zap.String("user_id", conv.UserID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
		return nil, err
	}

	reply = protocol.Sanitize(reply)
	if reply == "" {
		reply = emptyReply
	}
	conv.remember(llm.Assistant(reply))
	a.persist(ctx, conv, domain.RoleAssistant, reply)
	return a.respond(conv, reply), nil
}

func (a *Assistant) dispatch(ctx context.Context, conv *Conversation, text string) (string, error) {
	verdict, out := conv.gate.Resolve(ctx, text, func(ctx context.Context, d protocol.ActionDescriptor) string {
		return a.exec.Run(ctx, conv.UserID, d)
	})
	switch verdict {
	case VerdictConfirmed, VerdictCancelled, VerdictEdit:
		conv.choice = nil
		return out, nil
	case VerdictOther:
		pending, _ := conv.gate.Pending()
		reply, err := a.tasks.Handle(ctx, a.turn(conv, text, fmt.Sprintf(pendingContextPrefix, pending.Summary)))
		if err != nil {
			return "", err
		}
		return a.apply(conv, reply), nil
	}

	if choice := conv.choice; choice != nil {
		conv.choice = nil
		if IsNegative(text) {
			return choiceCancelled, nil
		}
		if task, ok := choice.Pick(text); ok {
			reply, err := a.tasks.Propose(ctx, conv.UserID, choice.descriptorFor(task))
			if err != nil {
				return "", err
			}
			return a.apply(conv, reply), nil
		}
	}

	intent, err := a.router.Classify(ctx, conv.history)
	if err != nil {
		return "", err
	}
	a.log.Debug("classified", zap.String("user_id", conv.UserID), zap.String("intent", string(intent)))

	specialist, ok := a.specialists[intent]
	if !ok {
		specialist = a.specialists[IntentChat]
	}
	reply, err := specialist.Handle(ctx, a.turn(conv, text, ""))
	if err != nil {
		return "", err
	}
	return a.apply(conv, reply), nil
}

func (a *Assistant) turn(conv *Conversation, text, extra string) Turn {
	return Turn{
		UserID:  conv.UserID,
		Message: text,
		History: append([]llm.Message(nil), conv.history...),
		Context: extra,
	}
}

// apply records a reply's proposal or choice on the conversation.
func (a *Assistant) apply(conv *Conversation, reply Reply) string {
	if reply.Proposal != nil {
		conv.gate.Propose(reply.Proposal.Descriptor, reply.Proposal.Summary)
	}
	if reply.Choice != nil {
		conv.choice = reply.Choice
	}
	return reply.Text
}

func (a *Assistant) respond(conv *Conversation, content string) *contract.ChatResponse {
	var pending *contract.PendingConfirmation
	if p, ok := conv.gate.Pending(); ok {
		pending = &contract.PendingConfirmation{Action: string(p.Descriptor.Action), Summary: p.Summary}
	}
	return contract.NewChatResponse(conv.SessionID, content, pending)
}

func (a *Assistant) persist(ctx context.Context, conv *Conversation, role domain.ChatRole, content string) {
	if a.store == nil || conv.SessionID == "" {
		return
	}
	if _, err := a.store.Append(ctx, conv.SessionID, role, content); err != nil {
		a.log.Warn("saving chat message failed",
			zap.String("session_id", conv.SessionID), zap.String("role", string(role)), zap.Error(err))
	}
}

func lastUserText(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			return strings.TrimSpace(history[i].Content)
		}
	}
	return ""
}
