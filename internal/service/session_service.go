package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/studysync/study-service/internal/domain"
)

// SessionStore — хранилище видеосессий. Реализуется postgres.SessionRepository.
type SessionStore interface {
	Start(ctx context.Context, roomID string, userID int64) (*domain.VideoSession, error)
	Get(ctx context.Context, id string) (*domain.VideoSession, error)
	FindActiveByRoom(ctx context.Context, roomID string) (*domain.VideoSession, error)
	AddParticipant(ctx context.Context, sessionID string, userID int64) error
	RemoveParticipant(ctx context.Context, sessionID string, userID int64) (*domain.VideoSession, error)
	End(ctx context.Context, sessionID string) (*domain.VideoSession, error)
}

// SessionService — жизненный цикл звонка: no-session → active → ended.
// ended терминален, единственность активной сессии на комнату держит стор.
type SessionService struct {
	sessions SessionStore
}

func NewSessionService(sessions SessionStore) *SessionService {
	return &SessionService{sessions: sessions}
}

func (s *SessionService) Start(ctx context.Context, roomID string, initiatorID int64) (*domain.VideoSession, error) {
	sess, err := s.sessions.Start(ctx, roomID, initiatorID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.VideoSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *SessionService) Join(ctx context.Context, sessionID string, userID int64) error {
	return s.sessions.AddParticipant(ctx, sessionID, userID)
}

// Leave убирает участника; когда уходит последний, сессия переходит в ended.
func (s *SessionService) Leave(ctx context.Context, sessionID string, userID int64) (*domain.VideoSession, error) {
	return s.sessions.RemoveParticipant(ctx, sessionID, userID)
}

func (s *SessionService) End(ctx context.Context, sessionID string) (*domain.VideoSession, error) {
	return s.sessions.End(ctx, sessionID)
}

// JoinCall / LeaveCall — best-effort хуки для signaling-релея: привязывают
// присутствие в звонке к активной сессии комнаты, если она есть.

func (s *SessionService) JoinCall(ctx context.Context, roomID string, userID int64) error {
	sess, err := s.sessions.FindActiveByRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("sessions.FindActiveByRoom: %w", err)
	}
	if err := s.sessions.AddParticipant(ctx, sess.ID, userID); err != nil {
		if errors.Is(err, domain.ErrSessionClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *SessionService) LeaveCall(ctx context.Context, roomID string, userID int64) error {
	sess, err := s.sessions.FindActiveByRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("sessions.FindActiveByRoom: %w", err)
	}
	if _, err := s.sessions.RemoveParticipant(ctx, sess.ID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotInSession),
			errors.Is(err, domain.ErrSessionClosed):
			return nil
		}
		return err
	}
	return nil
}
