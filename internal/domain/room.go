package domain

import "time"

type RoomType string

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

// DefaultCapacity используется, если при создании лимит не указан.
const DefaultCapacity = 10

func (t RoomType) Valid() bool {
	return t == RoomPublic || t == RoomPrivate
}

type Room struct {
	ID       string
	Name     string
	Type     RoomType
	Capacity int64

	// PasswordHash заполнен только для приватных комнат.
	// Наружу (DTO, summary) никогда не отдаётся.
	PasswordHash string

	Invitees     []int64
	Participants []int64

	CreatedBy          int64
	CreatedAt          time.Time
	VideoSessionActive bool
}

// NewRoom собирает комнату с проверкой инварианта "private ⇒ hash задан".
func NewRoom(name string, roomType RoomType, passwordHash string, capacity, createdBy int64) (*Room, error) {
	if !roomType.Valid() {
		return nil, ErrInvalidRoomType
	}
	if roomType == RoomPrivate && passwordHash == "" {
		return nil, ErrPasswordRequired
	}
	if roomType == RoomPublic {
		passwordHash = ""
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Room{
		Name:         name,
		Type:         roomType,
		Capacity:     capacity,
		PasswordHash: passwordHash,
		CreatedBy:    createdBy,
	}, nil
}

func (r *Room) IsParticipant(userID int64) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) IsInvited(userID int64) bool {
	for _, id := range r.Invitees {
		if id == userID {
			return true
		}
	}
	return false
}

// RoomSummary — строка листинга: без хеша пароля и без полных составов.
type RoomSummary struct {
	ID                 string
	Name               string
	Type               RoomType
	CreatedBy          int64
	ParticipantCount   int64
	VideoSessionActive bool
	CreatedAt          time.Time
}

// Member — участник комнаты с разрешёнными полями пользователя.
type Member struct {
	UserID      int64
	DisplayName *string
	JoinedAt    time.Time
}
