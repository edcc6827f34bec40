// Package access — чистые правила доступа к комнатам. Никаких побочных
// эффектов: функции смотрят на уже загруженную комнату и возвращают
// sentinel-ошибки из domain.
package access

import "github.com/studysync/study-service/internal/domain"

// ValidateCreate проверяет вход операции создания комнаты.
// Для приватных комнат пароль обязателен и не короче minPasswordLen.
func ValidateCreate(roomType domain.RoomType, password string, minPasswordLen int) error {
	if !roomType.Valid() {
		return domain.ErrInvalidRoomType
	}
	if roomType == domain.RoomPrivate {
		if password == "" {
			return domain.ErrPasswordRequired
		}
		if len(password) < minPasswordLen {
			return domain.ErrPasswordTooShort
		}
	}
	return nil
}

// ValidateInvite проверяет право и применимость приглашения: только владелец,
// только приватная комната, непустой список. Существование приглашаемых
// проверяет сервис (нужен стор), после этого вызывается NewInvitees.
func ValidateInvite(room *domain.Room, requesterID int64, invitees []int64) error {
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if requesterID != room.CreatedBy {
		return domain.ErrNotOwner
	}
	if room.Type != domain.RoomPrivate {
		return domain.ErrNotPrivateRoom
	}
	if len(invitees) == 0 {
		return domain.ErrNoInvitees
	}
	return nil
}

// NewInvitees — дедуплицированный список тех, кого ещё нет в invitees комнаты.
// Пустой итог — это ошибка (ErrNoNewInvitees), в отличие от повторного join:
// там no-op считается успехом.
func NewInvitees(room *domain.Room, invitees []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(invitees))
	fresh := make([]int64, 0, len(invitees))
	for _, id := range invitees {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if room.IsInvited(id) {
			continue
		}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return nil, domain.ErrNoNewInvitees
	}
	return fresh, nil
}

// CheckJoin решает, может ли userID войти в комнату. Пароль приватной комнаты
// проверяется выше (bcrypt живёт в security). Повторный вход участника —
// идемпотентный успех (alreadyIn=true), даже если комната заполнена: состав
// при этом не растёт, инвариант по capacity не под угрозой.
func CheckJoin(room *domain.Room, userID int64) (alreadyIn bool, err error) {
	if room == nil {
		return false, domain.ErrRoomNotFound
	}
	if room.IsParticipant(userID) {
		return true, nil
	}
	if int64(len(room.Participants)) >= room.Capacity {
		return false, domain.ErrRoomFull
	}
	return false, nil
}

// CheckLeave: выйти может только текущий участник.
func CheckLeave(room *domain.Room, userID int64) error {
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if !room.IsParticipant(userID) {
		return domain.ErrNotInRoom
	}
	return nil
}
