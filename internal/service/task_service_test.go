package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTaskService(t *testing.T) (TaskService, repository.TaskRepo) {
	t.Helper()
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTaskRepo(database)
	return NewTaskService(repo, testutil.NewTestUoW(database)), repo
}

func seedTasks(t *testing.T, repo repository.TaskRepo, tasks ...*domain.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, repo.Create(context.Background(), task))
	}
}

func TestTaskService_Create_Defaults(t *testing.T) {
	svc, _ := setupTaskService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", domain.TaskFields{Title: domain.Ptr("Buy groceries")})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID, "service should assign UUID")
	assert.Equal(t, domain.TaskTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, domain.DefaultScore, task.PriorityScore)

	fetched, err := svc.Get(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy groceries", fetched.Title)
}

func TestTaskService_Create_PriorityLabelOnly(t *testing.T) {
	svc, _ := setupTaskService(t)

	high := domain.PriorityHigh
	task, err := svc.Create(context.Background(), "u1", domain.TaskFields{
		Title:    domain.Ptr("Ship release"),
		Priority: &high,
	})
	require.NoError(t, err)
	assert.Equal(t, 90, task.PriorityScore)
}

func TestTaskService_Create_RejectsInvalid(t *testing.T) {
	svc, _ := setupTaskService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", domain.TaskFields{Title: domain.Ptr("  ")})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	_, err = svc.Create(ctx, "u1", domain.TaskFields{Title: domain.Ptr("x"), PriorityScore: domain.Ptr(150)})
	assert.ErrorIs(t, err, domain.ErrInvalidScore)
}

func TestTaskService_Update_ScoreWinsOverLabel(t *testing.T) {
	svc, repo := setupTaskService(t)
	task := testutil.NewTestTask("Refactor parser")
	seedTasks(t, repo, task)

	low := domain.PriorityLow
	updated, err := svc.Update(context.Background(), testutil.TestUserID, task.ID, domain.TaskFields{
		Priority:      &low,
		PriorityScore: domain.Ptr(80),
	})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.PriorityScore)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
}

func TestTaskService_Update_OtherUsersTaskNotFound(t *testing.T) {
	svc, repo := setupTaskService(t)
	task := testutil.NewTestTask("Mine")
	seedTasks(t, repo, task)

	_, err := svc.Update(context.Background(), "intruder", task.ID, domain.TaskFields{Title: domain.Ptr("Theirs")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskService_Complete(t *testing.T) {
	svc, repo := setupTaskService(t)
	task := testutil.NewTestTask("Write report")
	seedTasks(t, repo, task)
	ctx := context.Background()

	done, err := svc.Complete(ctx, testutil.TestUserID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskDone, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = svc.Complete(ctx, testutil.TestUserID, task.ID)
	assert.ErrorIs(t, err, ErrAlreadyDone)
}

func TestTaskService_Delete(t *testing.T) {
	svc, repo := setupTaskService(t)
	task := testutil.NewTestTask("Old idea")
	seedTasks(t, repo, task)
	ctx := context.Background()

	deleted, err := svc.Delete(ctx, testutil.TestUserID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old idea", deleted.Title)

	_, err = svc.Get(ctx, testutil.TestUserID, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Delete(ctx, testutil.TestUserID, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskService_ListActive(t *testing.T) {
	svc, repo := setupTaskService(t)
	seedTasks(t, repo,
		testutil.NewTestTask("todo"),
		testutil.NewTestTask("doing", testutil.WithStatus(domain.TaskInProgress)),
		testutil.NewTestTask("waiting", testutil.WithStatus(domain.TaskBlocked)),
		testutil.NewTestTask("later", testutil.WithStatus(domain.TaskPaused)),
		testutil.NewTestTask("finished", testutil.WithStatus(domain.TaskDone)),
	)

	active, err := svc.ListActive(context.Background(), testutil.TestUserID)
	require.NoError(t, err)

	var titles []string
	for _, task := range active {
		titles = append(titles, task.Title)
	}
	assert.ElementsMatch(t, []string{"todo", "doing"}, titles)
}

func TestTaskService_Search(t *testing.T) {
	svc, repo := setupTaskService(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	older := testutil.NewTestTask("Review code for Yury", testutil.WithCreatedAt(base))
	newer := testutil.NewTestTask("Review code for Anna", testutil.WithCreatedAt(base.Add(time.Hour)))
	seedTasks(t, repo,
		older,
		newer,
		testutil.NewTestTask("Buy groceries"),
		testutil.NewTestTask("Review code (archived)", testutil.WithStatus(domain.TaskDone)),
		testutil.NewTestTask("Review code", testutil.WithUser("someone-else")),
	)

	matches, err := svc.Search(context.Background(), testutil.TestUserID, "review code", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, newer.ID, matches[0].Task.ID, "ties break on most recent")
	assert.Equal(t, older.ID, matches[1].Task.ID)
	assert.Equal(t, 100.0, matches[0].Score)
	assert.False(t, matches[0].Exact())
}

func TestTaskService_Search_NoMatches(t *testing.T) {
	svc, repo := setupTaskService(t)
	seedTasks(t, repo, testutil.NewTestTask("Buy groceries"))

	matches, err := svc.Search(context.Background(), testutil.TestUserID, "code review", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestTaskService_ApplyRelevanceScores(t *testing.T) {
	svc, repo := setupTaskService(t)
	a := testutil.NewTestTask("A")
	b := testutil.NewTestTask("B")
	foreign := testutil.NewTestTask("C", testutil.WithUser("other"))
	seedTasks(t, repo, a, b, foreign)
	ctx := context.Background()

	applied, err := svc.ApplyRelevanceScores(ctx, testutil.TestUserID, map[string]float64{
		a.ID:       90,
		b.ID:       10,
		foreign.ID: 50,
		"missing":  70,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	got, err := svc.Get(ctx, testutil.TestUserID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RelevanceScore)
	assert.Equal(t, 90.0, *got.RelevanceScore)

	other, err := svc.Get(ctx, "other", foreign.ID)
	require.NoError(t, err)
	assert.Nil(t, other.RelevanceScore)
}

func TestTaskService_ApplyRelevanceScores_RollsBack(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTaskRepo(database)
	a := testutil.NewTestTask("A")
	b := testutil.NewTestTask("B")
	seedTasks(t, repo, a, b)

	boom := errors.New("disk full")
	svc := NewTaskService(repo, &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: boom})

	_, err := svc.ApplyRelevanceScores(context.Background(), testutil.TestUserID, map[string]float64{a.ID: 80, b.ID: 20})
	require.ErrorIs(t, err, boom)

	for _, id := range []string{a.ID, b.ID} {
		got, err := repo.GetByID(context.Background(), id, testutil.TestUserID)
		require.NoError(t, err)
		assert.Nil(t, got.RelevanceScore, "no partial score write")
	}
}

func TestTaskService_RecordFeedback(t *testing.T) {
	svc, repo := setupTaskService(t)
	task := testutil.NewTestTask("Plan sprint")
	seedTasks(t, repo, task)
	ctx := context.Background()

	require.NoError(t, svc.RecordFeedback(ctx, testutil.TestUserID, task.ID, domain.FeedbackDismissed))

	got, err := svc.Get(ctx, testutil.TestUserID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestionFeedback)
	assert.Equal(t, domain.FeedbackDismissed, *got.SuggestionFeedback)
}

func TestTaskService_CompletedSince(t *testing.T) {
	svc, repo := setupTaskService(t)
	now := time.Now().UTC()
	seedTasks(t, repo,
		testutil.NewTestTask("recent", testutil.WithEstimatedMinutes(60), testutil.WithCompletedAt(now.Add(-2*time.Hour))),
		testutil.NewTestTask("old", testutil.WithEstimatedMinutes(30), testutil.WithCompletedAt(now.Add(-48*time.Hour))),
	)

	done, err := svc.CompletedSince(context.Background(), testutil.TestUserID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "recent", done[0].Title)
}
