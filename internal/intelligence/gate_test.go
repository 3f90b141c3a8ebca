package intelligence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alexanderramin/liminal/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDescriptor(title string) protocol.ActionDescriptor {
	return protocol.ActionDescriptor{
		Action:  protocol.ActionCreateTask,
		Details: map[string]any{"title": title},
	}
}

func countingRun(n *atomic.Int32) RunFunc {
	return func(_ context.Context, d protocol.ActionDescriptor) string {
		n.Add(1)
		return "ran " + detailString(d.Details, "title")
	}
}

func TestGate_ZeroValueIsIdle(t *testing.T) {
	var g Gate
	assert.Equal(t, GateIdle, g.State())

	var runs atomic.Int32
	verdict, out := g.Resolve(context.Background(), "yes", countingRun(&runs))
	assert.Equal(t, VerdictIdle, verdict)
	assert.Empty(t, out)
	assert.Zero(t, runs.Load())
}

func TestGate_ConfirmRunsOnce(t *testing.T) {
	var g Gate
	var runs atomic.Int32
	g.Propose(createDescriptor("Review code"), "Create task **Review code**")
	assert.Equal(t, GateAwaiting, g.State())

	verdict, out := g.Resolve(context.Background(), "Yes!", countingRun(&runs))
	assert.Equal(t, VerdictConfirmed, verdict)
	assert.Equal(t, "ran Review code", out)
	assert.Equal(t, GateIdle, g.State())

	verdict, _ = g.Resolve(context.Background(), "yes", countingRun(&runs))
	assert.Equal(t, VerdictIdle, verdict)
	assert.Equal(t, int32(1), runs.Load())
}

func TestGate_ConcurrentYesRunsOnce(t *testing.T) {
	var g Gate
	var runs atomic.Int32
	g.Propose(createDescriptor("Review code"), "summary")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Resolve(context.Background(), "yes", countingRun(&runs))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, GateIdle, g.State())
}

func TestGate_NegativeCancels(t *testing.T) {
	for _, reply := range []string{"no", "N", "cancel.", "Nevermind", "never mind"} {
		t.Run(reply, func(t *testing.T) {
			var g Gate
			var runs atomic.Int32
			g.Propose(createDescriptor("Review code"), "summary")

			verdict, out := g.Resolve(context.Background(), reply, countingRun(&runs))
			assert.Equal(t, VerdictCancelled, verdict)
			assert.Equal(t, cancelledReply, out)
			assert.Equal(t, GateIdle, g.State())
			assert.Zero(t, runs.Load())
		})
	}
}

func TestGate_AffirmativeVariants(t *testing.T) {
	for _, reply := range []string{"yes", "Y", "confirm", "Create it.", "do it!", "  YES  "} {
		assert.True(t, IsAffirmative(reply), reply)
	}
	for _, reply := range []string{"yes please change the date", "sure", "ok maybe"} {
		assert.False(t, IsAffirmative(reply), reply)
	}
}

func TestGate_OtherReplyKeepsPending(t *testing.T) {
	var g Gate
	var runs atomic.Int32
	g.Propose(createDescriptor("Review code"), "summary")

	verdict, out := g.Resolve(context.Background(), "make it high priority", countingRun(&runs))
	assert.Equal(t, VerdictOther, verdict)
	assert.Empty(t, out)
	assert.Equal(t, GateAwaiting, g.State())
	assert.Zero(t, runs.Load())
}

func TestGate_EditAsksWhatToChange(t *testing.T) {
	var g Gate
	var runs atomic.Int32
	g.Propose(createDescriptor("Review code"), "Create task **Review code**")

	verdict, out := g.Resolve(context.Background(), "Edit", countingRun(&runs))
	assert.Equal(t, VerdictEdit, verdict)
	assert.Contains(t, out, "What would you like to change?")
	assert.Contains(t, out, "Review code")
	assert.Equal(t, GateAwaiting, g.State())
}

func TestGate_NewProposalReplacesOld(t *testing.T) {
	var g Gate
	var runs atomic.Int32
	g.Propose(createDescriptor("First"), "first")
	g.Propose(createDescriptor("Second"), "second")

	pending, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, "second", pending.Summary)

	_, out := g.Resolve(context.Background(), "yes", countingRun(&runs))
	assert.Equal(t, "ran Second", out)
	assert.Equal(t, int32(1), runs.Load())
}

func TestGate_ProposeCopiesDescriptor(t *testing.T) {
	var g Gate
	d := createDescriptor("Original")
	g.Propose(d, "summary")
	d.Details["title"] = "Mutated"

	pending, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, "Original", pending.Descriptor.Details["title"])
}
