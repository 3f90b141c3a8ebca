package intelligence

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/fuzzy"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/protocol"
)

// HistoryLimit bounds the turns kept in memory per conversation.
const HistoryLimit = 20

// Conversation is the state of one chat between a user and the assistant.
// Turns on one conversation are serialised; separate conversations are
// independent.
type Conversation struct {
	UserID    string
	SessionID string

	turn sync.Mutex

	gate    Gate
	choice  *Choice
	history []llm.Message
}

func NewConversation(userID, sessionID string) *Conversation {
	return &Conversation{UserID: userID, SessionID: sessionID}
}

// Gate exposes the conversation's confirmation gate.
func (c *Conversation) Gate() *Gate {
	return &c.gate
}

// History returns a copy of the remembered turns.
func (c *Conversation) History() []llm.Message {
	c.turn.Lock()
	defer c.turn.Unlock()
	return append([]llm.Message(nil), c.history...)
}

// absorb records inbound messages. A single message is appended; a longer
// list is the client's full transcript and replaces what we had.
func (c *Conversation) absorb(msgs []llm.Message) {
	if len(msgs) == 1 {
		c.history = append(c.history, msgs[0])
	} else if len(msgs) > 1 {
		c.history = append([]llm.Message(nil), msgs...)
	}
	c.trim()
}

func (c *Conversation) remember(m llm.Message) {
	c.history = append(c.history, m)
	c.trim()
}

func (c *Conversation) trim() {
	if len(c.history) > HistoryLimit {
		c.history = append([]llm.Message(nil), c.history[len(c.history)-HistoryLimit:]...)
	}
}

// Choice is a numbered list of candidate tasks waiting for the user to pick
// one, with the action to propose once they do.
type Choice struct {
	Action     protocol.Action
	Details    map[string]any
	Candidates []*domain.Task
}

var (
	choiceNumber = regexp.MustCompile(`\d+`)
	ordinals     = map[string]int{"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5, "last": -1}
)

// Pick resolves a reply to one candidate by number, ordinal or title.
func (c *Choice) Pick(reply string) (*domain.Task, bool) {
	if m := choiceNumber.FindString(reply); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil && n >= 1 && n <= len(c.Candidates) {
			return c.Candidates[n-1], true
		}
		return nil, false
	}
	for _, word := range fuzzy.Tokens(reply) {
		if n, ok := ordinals[word]; ok {
			if n == -1 {
				n = len(c.Candidates)
			}
			if n <= len(c.Candidates) {
				return c.Candidates[n-1], true
			}
		}
	}

	matches := fuzzy.Rank(reply, c.Candidates, fuzzy.DefaultThreshold)
	switch {
	case len(matches) == 0:
		return nil, false
	case matches[0].Exact(), len(matches) == 1:
		return matches[0].Task, true
	}
	return nil, false
}

// descriptorFor builds the action to propose for the picked task.
func (c *Choice) descriptorFor(task *domain.Task) protocol.ActionDescriptor {
	d := protocol.ActionDescriptor{Action: c.Action, Details: c.Details}.Clone()
	d.Details["id"] = task.ID
	return d
}

func formatCandidates(tasks []*domain.Task) string {
	var b strings.Builder
	b.WriteString("I found multiple tasks:")
	for i, t := range tasks {
		b.WriteString("\n" + strconv.Itoa(i+1) + ") " + t.Title)
	}
	b.WriteString("\nWhich one did you mean?")
	return b.String()
}
