package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/studysync/study-service/internal/access"
	"github.com/studysync/study-service/internal/domain"
	"github.com/studysync/study-service/internal/security"
)

// RoomStore — то, что сервису нужно от хранилища комнат. Реализуется
// postgres.RoomRepository; в тестах — in-memory фейком.
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	GetByName(ctx context.Context, name string) (*domain.Room, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.RoomSummary, string, error)
	AddParticipant(ctx context.Context, roomID string, userID int64) (added bool, err error)
	RemoveParticipant(ctx context.Context, roomID string, userID int64) error
	AddInvitees(ctx context.Context, roomID string, userIDs []int64) error
	Members(ctx context.Context, roomID string) ([]domain.Member, error)
	PasswordHash(ctx context.Context, roomID string) (string, error)
}

type UserStore interface {
	AllExist(ctx context.Context, ids []int64) (bool, error)
}

type RoomService struct {
	rooms  RoomStore
	users  UserStore
	bcrypt *security.BcryptConfig
}

func NewRoomService(rooms RoomStore, users UserStore, bcrypt *security.BcryptConfig) *RoomService {
	return &RoomService{rooms: rooms, users: users, bcrypt: bcrypt}
}

func (s *RoomService) minPasswordLen() int {
	if s.bcrypt != nil && s.bcrypt.MinLength > 0 {
		return s.bcrypt.MinLength
	}
	return 6
}

// CreateRoom создаёт комнату; для приватной пароль хешируется и в открытом
// виде дальше этого метода не живёт.
func (s *RoomService) CreateRoom(ctx context.Context, name string, roomType domain.RoomType, password string, capacity, createdBy int64) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if err := access.ValidateCreate(roomType, password, s.minPasswordLen()); err != nil {
		return nil, err
	}

	var hash string
	if roomType == domain.RoomPrivate {
		var err error
		if hash, err = security.HashPassword(password, s.bcrypt); err != nil {
			return nil, err
		}
	}

	room, err := domain.NewRoom(name, roomType, hash, capacity, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("rooms.Create: %w", err)
	}
	return room, nil
}

// GetRoom возвращает комнату с разрешёнными участниками.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, []domain.Member, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.rooms.Members(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("rooms.Members: %w", err)
	}
	return room, members, nil
}

// ListRooms возвращает summary-строки с курсорной пагинацией.
func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.RoomSummary, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.rooms.List(ctx, limit, cursor)
}

// JoinRoom: пароль (для приватных) → capacity → идемпотичный повторный вход.
// Сериализацию параллельных входов обеспечивает стор.
func (s *RoomService) JoinRoom(ctx context.Context, roomName string, userID int64, password string) (*domain.Room, error) {
	room, err := s.rooms.GetByName(ctx, roomName)
	if err != nil {
		return nil, err
	}

	if room.Type == domain.RoomPrivate {
		if err := security.ComparePassword(room.PasswordHash, password); err != nil {
			return nil, domain.ErrWrongPassword
		}
	}

	alreadyIn, err := access.CheckJoin(room, userID)
	if err != nil {
		return nil, err
	}
	if !alreadyIn {
		added, err := s.rooms.AddParticipant(ctx, room.ID, userID)
		if err != nil {
			// гонка на последнее место решается под блокировкой в сторе
			return nil, err
		}
		if added {
			room.Participants = append(room.Participants, userID)
		}
	}
	return room, nil
}

func (s *RoomService) LeaveRoom(ctx context.Context, roomName string, userID int64) (*domain.Room, error) {
	room, err := s.rooms.GetByName(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if err := access.CheckLeave(room, userID); err != nil {
		return nil, err
	}
	if err := s.rooms.RemoveParticipant(ctx, room.ID, userID); err != nil {
		return nil, err
	}

	kept := room.Participants[:0]
	for _, id := range room.Participants {
		if id != userID {
			kept = append(kept, id)
		}
	}
	room.Participants = kept
	return room, nil
}

// Invite добавляет приглашения в приватную комнату. Возвращает итоговый
// список invitees комнаты.
func (s *RoomService) Invite(ctx context.Context, roomID string, requesterID int64, invitees []int64) ([]int64, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := access.ValidateInvite(room, requesterID, invitees); err != nil {
		return nil, err
	}

	ok, err := s.users.AllExist(ctx, invitees)
	if err != nil {
		return nil, fmt.Errorf("users.AllExist: %w", err)
	}
	if !ok {
		return nil, domain.ErrInviteeUnknown
	}

	fresh, err := access.NewInvitees(room, invitees)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.AddInvitees(ctx, room.ID, fresh); err != nil {
		return nil, fmt.Errorf("rooms.AddInvitees: %w", err)
	}
	return append(room.Invitees, fresh...), nil
}

// VerifyPassword: совпадает ли кандидат с хешом комнаты. Пустой хеш
// (публичная комната) не матчится никогда.
func (s *RoomService) VerifyPassword(ctx context.Context, roomID, candidate string) (bool, error) {
	hash, err := s.rooms.PasswordHash(ctx, roomID)
	if err != nil {
		return false, err
	}
	return security.ComparePassword(hash, candidate) == nil, nil
}
