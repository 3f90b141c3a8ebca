package intelligence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
	"github.com/alexanderramin/liminal/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Wednesday.
var testNow = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

type scripted struct {
	text string
	err  error
}

// scriptedClient replays queued replies per task type and records every request.
type scriptedClient struct {
	mu     sync.Mutex
	queues map[llm.TaskType][]scripted
	calls  []llm.CompleteRequest
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{queues: map[llm.TaskType][]scripted{}}
}

func (c *scriptedClient) reply(task llm.TaskType, texts ...string) *scriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, text := range texts {
		c.queues[task] = append(c.queues[task], scripted{text: text})
	}
	return c
}

func (c *scriptedClient) fail(task llm.TaskType, err error) *scriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[task] = append(c.queues[task], scripted{err: err})
	return c
}

func (c *scriptedClient) Complete(_ context.Context, req llm.CompleteRequest) (*llm.CompleteResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	q := c.queues[req.Task]
	if len(q) == 0 {
		return nil, fmt.Errorf("unexpected %s completion", req.Task)
	}
	next := q[0]
	c.queues[req.Task] = q[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &llm.CompleteResponse{Text: next.text, Model: "test-model"}, nil
}

func (c *scriptedClient) Available(context.Context) bool { return true }

func (c *scriptedClient) callsFor(task llm.TaskType) []llm.CompleteRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []llm.CompleteRequest
	for _, r := range c.calls {
		if r.Task == task {
			out = append(out, r)
		}
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(event, userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+userID)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type harness struct {
	tasks     service.TaskService
	repo      repository.TaskRepo
	client    *scriptedClient
	notifier  *recordingNotifier
	exec      *Executor
	assistant *Assistant
	conv      *Conversation
}

func newHarness(t *testing.T, opts ...AssistantOption) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTaskRepo(database)
	tasks := service.NewTaskService(repo, testutil.NewTestUoW(database))
	client := newScriptedClient()
	notifier := &recordingNotifier{}
	exec := NewExecutor(tasks, notifier, zap.NewNop(), WithExecutorClock(func() time.Time { return testNow }))
	return &harness{
		tasks:     tasks,
		repo:      repo,
		client:    client,
		notifier:  notifier,
		exec:      exec,
		assistant: NewAssistant(client, tasks, exec, AssistantConfig{}, zap.NewNop(), opts...),
		conv:      NewConversation(testutil.TestUserID, "session-1"),
	}
}

func (h *harness) seed(t *testing.T, tasks ...*domain.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, h.repo.Create(context.Background(), task))
	}
}

func (h *harness) say(t *testing.T, text string) string {
	t.Helper()
	resp, err := h.assistant.Handle(context.Background(), h.conv, []llm.Message{llm.User(text)})
	require.NoError(t, err)
	return resp.Content
}

func (h *harness) list(t *testing.T) []*domain.Task {
	t.Helper()
	all, err := h.tasks.List(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	return all
}
