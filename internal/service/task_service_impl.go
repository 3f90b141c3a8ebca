package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/liminal/internal/db"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/fuzzy"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/google/uuid"
)

type taskService struct {
	tasks    repository.TaskRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewTaskService(tasks repository.TaskRepo, uow db.UnitOfWork, observers ...UseCaseObserver) TaskService {
	return &taskService{
		tasks:    tasks,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *taskService) Create(ctx context.Context, userID string, f domain.TaskFields) (task *domain.Task, err error) {
	defer observe(ctx, s.observer, "create-task", time.Now().UTC(), map[string]any{"user_id": userID}, &err)

	task, err = domain.NewTask(uuid.New().String(), userID, f, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err = s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, userID, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id, userID)
}

func (s *taskService) List(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.tasks.ListByUser(ctx, userID)
}

func (s *taskService) ListActive(ctx context.Context, userID string) ([]*domain.Task, error) {
	all, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]*domain.Task, 0, len(all))
	for _, t := range all {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *taskService) Update(ctx context.Context, userID, id string, f domain.TaskFields) (task *domain.Task, err error) {
	defer observe(ctx, s.observer, "update-task", time.Now().UTC(), map[string]any{"user_id": userID, "task_id": id}, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteTaskRepo(tx)
		t, err := repo.GetByID(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := t.Apply(f, time.Now().UTC()); err != nil {
			return err
		}
		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Complete(ctx context.Context, userID, id string) (task *domain.Task, err error) {
	defer observe(ctx, s.observer, "complete-task", time.Now().UTC(), map[string]any{"user_id": userID, "task_id": id}, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteTaskRepo(tx)
		t, err := repo.GetByID(ctx, id, userID)
		if err != nil {
			return err
		}
		task = t
		if t.IsDone() {
			return ErrAlreadyDone
		}
		t.MarkDone(time.Now().UTC())
		return repo.Update(ctx, t)
	})
	if err != nil {
		return task, err
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, userID, id string) (task *domain.Task, err error) {
	defer observe(ctx, s.observer, "delete-task", time.Now().UTC(), map[string]any{"user_id": userID, "task_id": id}, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteTaskRepo(tx)
		t, err := repo.GetByID(ctx, id, userID)
		if err != nil {
			return err
		}
		task = t
		return repo.Delete(ctx, id, userID)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Search(ctx context.Context, userID, query string, threshold float64) ([]fuzzy.Match, error) {
	if threshold <= 0 {
		threshold = fuzzy.DefaultThreshold
	}
	all, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return fuzzy.Rank(query, all, threshold), nil
}

func (s *taskService) CompletedSince(ctx context.Context, userID string, since time.Time) ([]*domain.Task, error) {
	return s.tasks.ListCompletedSince(ctx, userID, since)
}

func (s *taskService) ApplyRelevanceScores(ctx context.Context, userID string, scores map[string]float64) (applied int, err error) {
	fields := map[string]any{"user_id": userID, "submitted": len(scores)}
	defer observe(ctx, s.observer, "apply-relevance-scores", time.Now().UTC(), fields, &err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteTaskRepo(tx)
		applied = 0
		for id, score := range scores {
			err := repo.SetRelevanceScore(ctx, id, userID, score)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("scoring task %s: %w", id, err)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	fields["applied"] = applied
	return applied, nil
}

func (s *taskService) RecordFeedback(ctx context.Context, userID, id string, fb domain.SuggestionFeedback) error {
	_, err := s.Update(ctx, userID, id, domain.TaskFields{SuggestionFeedback: &fb})
	return err
}

func (s *taskService) ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	return s.tasks.ListOpenDueBefore(ctx, cutoff)
}
