package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/liminal/internal/config"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/monitor"
	"github.com/alexanderramin/liminal/internal/notify"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
	"github.com/alexanderramin/liminal/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

// stubClient replays canned replies per task type.
type stubClient struct {
	mu      sync.Mutex
	queues  map[llm.TaskType][]string
	failAll error
	calls   []llm.CompleteRequest
}

func (c *stubClient) reply(task llm.TaskType, texts ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[task] = append(c.queues[task], texts...)
}

func (c *stubClient) Complete(_ context.Context, req llm.CompleteRequest) (*llm.CompleteResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if c.failAll != nil {
		return nil, c.failAll
	}
	q := c.queues[req.Task]
	if len(q) == 0 {
		return nil, fmt.Errorf("unexpected %s completion", req.Task)
	}
	c.queues[req.Task] = q[1:]
	return &llm.CompleteResponse{Text: q[0]}, nil
}

func (c *stubClient) Available(context.Context) bool { return true }

type testEnv struct {
	app    *App
	client *stubClient
	repo   repository.TaskRepo
	users  []string // --user values each build saw
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	repo := repository.NewSQLiteTaskRepo(database)
	tasks := service.NewTaskService(repo, uow)
	chats := service.NewChatService(repository.NewSQLiteChatRepo(database), uow)
	client := &stubClient{queues: map[llm.TaskType][]string{}}
	hub := notify.NewHub(zap.NewNop())
	clock := func() time.Time { return testNow }

	cfg := config.Default()
	cfg.User = testutil.TestUserID
	exec := intelligence.NewExecutor(tasks, hub, zap.NewNop(), intelligence.WithExecutorClock(clock))

	return &testEnv{
		client: client,
		repo:   repo,
		app: &App{
			Config:    cfg,
			Tasks:     tasks,
			Chats:     chats,
			Assistant: intelligence.NewAssistant(client, tasks, exec, intelligence.AssistantConfig{}, zap.NewNop(), intelligence.WithChatStore(chats)),
			Scorer:    intelligence.NewScorer(client, tasks, zap.NewNop(), intelligence.WithScorerClock(clock)),
			Monitor:   monitor.New(tasks, chats, hub, monitor.Config{Interval: time.Hour}, zap.NewNop(), monitor.WithClock(clock)),
			Hub:       hub,
			Log:       zap.NewNop(),
			Now:       clock,
		},
	}
}

func (e *testEnv) build(_ context.Context, opts Options) (*App, func(), error) {
	e.users = append(e.users, opts.User)
	return e.app, func() {}, nil
}

func (e *testEnv) seed(t *testing.T, tasks ...*domain.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, e.repo.Create(context.Background(), task))
	}
}

// run executes the root command with args, feeding stdin, and captures output.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(e.build)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestTasksCmd(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewTestTask("Write report", testutil.WithRelevance(64)),
		testutil.NewTestTask("Old chore", testutil.WithStatus(domain.TaskDone)),
	)

	out, err := env.run(t, "", "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "64")
	assert.NotContains(t, out, "Old chore")

	out, err = env.run(t, "", "tasks", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Old chore")
}

func TestSuggestCmd_StoredAndRescore(t *testing.T) {
	env := newTestEnv(t)
	task := testutil.NewTestTask("Write report", testutil.WithRelevance(40))
	env.seed(t, task)

	out, err := env.run(t, "", "suggest")
	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "relevance 40")
	assert.Empty(t, env.client.calls)

	env.client.reply(llm.TaskScore, fmt.Sprintf(`{"scores": [{"task_id": %q, "score": 91}], "strategy_summary": "Due soon."}`, task.ID))
	out, err = env.run(t, "", "suggest", "--rescore")
	require.NoError(t, err)
	assert.Contains(t, out, "relevance 91")
	assert.Contains(t, out, "Due soon.")
}

func TestSuggestCmd_NoTasks(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "suggest")
	require.NoError(t, err)
	assert.Contains(t, out, "no active tasks")
}

func TestSuggestFeedbackCmd(t *testing.T) {
	env := newTestEnv(t)
	task := testutil.NewTestTask("Write report")
	env.seed(t, task)

	_, err := env.run(t, "", "suggest", "feedback", task.ID, "snoozed")
	require.NoError(t, err)

	got, err := env.app.Tasks.Get(context.Background(), testutil.TestUserID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestionFeedback)
	assert.Equal(t, domain.FeedbackSnoozed, *got.SuggestionFeedback)

	_, err = env.run(t, "", "suggest", "feedback", task.ID, "meh")
	assert.ErrorContains(t, err, "unknown feedback")

	_, err = env.run(t, "", "suggest", "feedback", task.ID)
	assert.Error(t, err)
}

func TestChatCmd_CreateAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.client.reply(llm.TaskClassify, "TASK")
	env.client.reply(llm.TaskRespond, `Sure.
pending_confirmation: {"action": "create_task", "details": {"title": "Review code", "priority": "high"}}`)

	out, err := env.run(t, "Add review code\nyes\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "[Yes] [No] [Edit]")
	assert.Contains(t, out, "Created task: 'Review code'")

	all, err := env.app.Tasks.List(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChatCmd_EOFEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.client.reply(llm.TaskClassify, "CHAT")
	env.client.reply(llm.TaskRespond, "Hello!")

	out, err := env.run(t, "hi\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello!")
}

func TestChatCmd_UnavailableKeepsGoing(t *testing.T) {
	env := newTestEnv(t)
	env.client.failAll = llm.ErrTimeout

	out, err := env.run(t, "hi\nstill there?\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "unavailable right now"))
}

func TestChatCmd_TurnErrorKeepsGoing(t *testing.T) {
	env := newTestEnv(t)
	env.client.failAll = errors.New("disk I/O error (SQLITE_IOERR)")

	out, err := env.run(t, "hi\nagain\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, turnFailedMessage))
	assert.NotContains(t, out, "SQLITE_IOERR")
}

func TestChatCmd_ResumeLatestReplaysHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session, err := env.app.Chats.StartSession(ctx, testutil.TestUserID, "Earlier")
	require.NoError(t, err)
	_, err = env.app.Chats.Append(ctx, session.ID, domain.RoleUser, "my name is Sam")
	require.NoError(t, err)

	env.client.reply(llm.TaskClassify, "CHAT")
	env.client.reply(llm.TaskRespond, "You're Sam.")
	out, err := env.run(t, "who am I?\n", "chat", "--session", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, session.ID)

	var respond llm.CompleteRequest
	for _, c := range env.client.calls {
		if c.Task == llm.TaskRespond {
			respond = c
		}
	}
	var contents []string
	for _, m := range respond.Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "my name is Sam")
}

func TestChatCmd_ClearForgetsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.client.reply(llm.TaskClassify, "CHAT", "CHAT")
	env.client.reply(llm.TaskRespond, "Hi!", "Hello again!")

	out, err := env.run(t, "hi\n/clear\nhello\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation cleared.")

	last := env.client.calls[len(env.client.calls)-1]
	for _, m := range last.Messages {
		assert.NotEqual(t, "hi", m.Content)
	}
}

func TestChatCmd_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "chat", "--session", "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMonitorCmd_Once(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.NewTestTask("Pay rent", testutil.WithDueDate(testNow.Add(time.Hour))))

	out, err := env.run(t, "", "monitor", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Alerted 1 user(s)")
}

func TestRootCmd_UserFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.NewTestTask("Bob's task", testutil.WithUser("bob")))

	out, err := env.run(t, "", "--user", "bob", "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob's task")
	assert.Equal(t, []string{"bob"}, env.users)

	out, err = env.run(t, "", "tasks")
	require.NoError(t, err)
	assert.NotContains(t, out, "Bob's task")
}

func TestRootCmd_BuildErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	root := NewRootCmd(func(context.Context, Options) (*App, func(), error) { return nil, nil, boom })
	root.SetArgs([]string{"tasks"})
	root.SetOut(new(bytes.Buffer))
	assert.ErrorIs(t, root.Execute(), boom)
}

func TestGlobalFlags(t *testing.T) {
	var opts Options
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindGlobalFlags(fs, &opts)

	require.NoError(t, fs.Parse([]string{"--config", "c.yaml", "--db", "x.db", "--user", "sam", "--debug"}))
	assert.Equal(t, Options{ConfigPath: "c.yaml", DBPath: "x.db", User: "sam", Debug: true}, opts)
}
