package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/liminal/internal/db"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/google/uuid"
)

type chatService struct {
	chats    repository.ChatRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewChatService(chats repository.ChatRepo, uow db.UnitOfWork, observers ...UseCaseObserver) ChatService {
	return &chatService{
		chats:    chats,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
	}
}

func newSession(userID, title string, now time.Time) *domain.ChatSession {
	return &domain.ChatSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newMessage(sessionID string, role domain.ChatRole, content string, now time.Time) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

func (s *chatService) StartSession(ctx context.Context, userID, title string) (*domain.ChatSession, error) {
	if title == "" {
		title = "New Chat"
	}
	session := newSession(userID, title, time.Now().UTC())
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *chatService) GetSession(ctx context.Context, userID, id string) (*domain.ChatSession, error) {
	return s.chats.GetSession(ctx, id, userID)
}

func (s *chatService) LatestSession(ctx context.Context, userID string) (*domain.ChatSession, error) {
	return s.chats.LatestSession(ctx, userID)
}

func (s *chatService) ListSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	return s.chats.ListSessions(ctx, userID)
}

func (s *chatService) Append(ctx context.Context, sessionID string, role domain.ChatRole, content string) (*domain.ChatMessage, error) {
	now := time.Now().UTC()
	msg := newMessage(sessionID, role, content, now)

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteChatRepo(tx)
		if err := repo.AppendMessage(ctx, msg); err != nil {
			return err
		}
		return repo.TouchSession(ctx, sessionID, now)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	return s.chats.ListMessages(ctx, sessionID, limit)
}

func (s *chatService) Clear(ctx context.Context, sessionID string) error {
	return s.chats.ClearMessages(ctx, sessionID)
}

func (s *chatService) PostAlert(ctx context.Context, userID, content string) (msg *domain.ChatMessage, err error) {
	fields := map[string]any{"user_id": userID}
	defer observe(ctx, s.observer, "post-alert", time.Now().UTC(), fields, &err)

	now := time.Now().UTC()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteChatRepo(tx)

		session, err := repo.LatestSession(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			session = newSession(userID, domain.SystemAlertsTitle, now)
			if err := repo.CreateSession(ctx, session); err != nil {
				return err
			}
			fields["created_session"] = true
		} else if err != nil {
			return err
		}

		msg = newMessage(session.ID, domain.RoleAssistant, content, now)
		if err := repo.AppendMessage(ctx, msg); err != nil {
			return err
		}
		fields["session_id"] = session.ID
		return repo.TouchSession(ctx, session.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
