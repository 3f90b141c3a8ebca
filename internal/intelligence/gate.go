package intelligence

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/alexanderramin/liminal/internal/protocol"
)

// GateState is the confirmation gate's state.
type GateState int

const (
	GateIdle GateState = iota
	GateAwaiting
)

func (s GateState) String() string {
	if s == GateAwaiting {
		return "awaiting"
	}
	return "idle"
}

// Verdict is how Resolve treated a message.
type Verdict int

const (
	// VerdictIdle means nothing was pending.
	VerdictIdle Verdict = iota
	VerdictConfirmed
	VerdictCancelled
	// VerdictEdit means the user asked to change the proposal.
	VerdictEdit
	// VerdictOther means the message is neither yes nor no; the proposal
	// stays pending.
	VerdictOther
)

const cancelledReply = "Okay, cancelled. What else can I help with?"

var (
	affirmativeReplies = map[string]bool{"yes": true, "y": true, "confirm": true, "create it": true, "do it": true}
	negativeReplies    = map[string]bool{"no": true, "n": true, "cancel": true, "nevermind": true, "never mind": true}
)

// Pending is a proposed action waiting for consent.
type Pending struct {
	Descriptor protocol.ActionDescriptor
	Summary    string
}

// RunFunc executes a confirmed descriptor and returns the user-facing result.
type RunFunc func(ctx context.Context, d protocol.ActionDescriptor) string

// Gate holds at most one proposed mutation and releases it exactly once on
// an affirmative reply. The zero value is an idle gate.
type Gate struct {
	mu      sync.Mutex
	pending *Pending
}

// Propose replaces whatever is pending. It never executes anything.
func (g *Gate) Propose(d protocol.ActionDescriptor, summary string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &Pending{Descriptor: d.Clone(), Summary: summary}
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return GateIdle
	}
	return GateAwaiting
}

// Pending returns a copy of the outstanding proposal.
func (g *Gate) Pending() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Pending{}, false
	}
	return Pending{Descriptor: g.pending.Descriptor.Clone(), Summary: g.pending.Summary}, true
}

// Clear drops the outstanding proposal.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

// Resolve interprets msg against the outstanding proposal. On yes the
// descriptor is taken and cleared under the lock before run is called, so a
// second yes finds the gate idle.
func (g *Gate) Resolve(ctx context.Context, msg string, run RunFunc) (Verdict, string) {
	reply := normalizeReply(msg)

	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return VerdictIdle, ""
	}
	switch {
	case affirmativeReplies[reply]:
		d := g.pending.Descriptor
		g.pending = nil
		g.mu.Unlock()
		return VerdictConfirmed, run(ctx, d)
	case negativeReplies[reply]:
		g.pending = nil
		g.mu.Unlock()
		return VerdictCancelled, cancelledReply
	case reply == "edit":
		summary := g.pending.Summary
		g.mu.Unlock()
		return VerdictEdit, "Sure. What would you like to change?\n\n" + summary
	default:
		g.mu.Unlock()
		return VerdictOther, ""
	}
}

// IsAffirmative reports whether msg is one of the accepted yes replies.
func IsAffirmative(msg string) bool {
	return affirmativeReplies[normalizeReply(msg)]
}

// IsNegative reports whether msg is one of the accepted no replies.
func IsNegative(msg string) bool {
	return negativeReplies[normalizeReply(msg)]
}

// normalizeReply lowercases msg, drops punctuation and collapses spaces.
func normalizeReply(msg string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, msg)
	return strings.Join(strings.Fields(cleaned), " ")
}
