package domain

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// VideoSession — один звонок в комнате. Participants отслеживает присутствие
// на уровне звонка и не совпадает с составом комнаты.
// Инвариант: не более одной активной сессии на комнату; ended — терминальное.
type VideoSession struct {
	ID           string
	RoomID       string
	Participants []int64
	Status       SessionStatus
	StartedAt    time.Time
	EndedAt      *time.Time
}

func (s *VideoSession) HasParticipant(userID int64) bool {
	for _, id := range s.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
