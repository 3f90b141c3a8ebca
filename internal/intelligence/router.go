package intelligence

import (
	"context"
	"strings"

	"github.com/alexanderramin/liminal/internal/llm"
)

// Intent is the routing category of a user message.
type Intent string

const (
	IntentTask     Intent = "TASK"
	IntentQA       Intent = "QA"
	IntentTracking Intent = "TRACKING"
	IntentChat     Intent = "CHAT"
)

// intentPriority is the order labels are searched for in the reply.
var intentPriority = []Intent{IntentTask, IntentQA, IntentTracking, IntentChat}

// routerWindow is how many recent turns the classifier sees.
const routerWindow = 3

// Router classifies messages into an Intent.
type Router struct {
	client llm.Client
}

func NewRouter(client llm.Client) *Router {
	return &Router{client: client}
}

// Classify sends the last few turns to the model and maps its reply onto an
// Intent. Gateway errors are returned as-is.
func (r *Router) Classify(ctx context.Context, history []llm.Message) (Intent, error) {
	msgs := make([]llm.Message, 0, routerWindow+1)
	msgs = append(msgs, llm.System(classifierPrompt))
	msgs = append(msgs, lastTurns(history, routerWindow)...)

	resp, err := r.client.Complete(ctx, llm.CompleteRequest{
		Task:     llm.TaskClassify,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	return ParseIntent(resp.Text), nil
}

// ParseIntent finds the first label, in priority order, contained in the
// reply. Anything unrecognised is chat.
func ParseIntent(reply string) Intent {
	upper := strings.ToUpper(reply)
	for _, intent := range intentPriority {
		if strings.Contains(upper, string(intent)) {
			return intent
		}
	}
	return IntentChat
}

func lastTurns(history []llm.Message, n int) []llm.Message {
	var turns []llm.Message
	for _, m := range history {
		if m.Role != llm.RoleSystem {
			turns = append(turns, m)
		}
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}
