package domain

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomNameTaken    = errors.New("room name already taken")
	ErrRoomFull         = errors.New("room is full")
	ErrNotInRoom        = errors.New("user not in the room")
	ErrInvalidRoomType  = errors.New("invalid room type")
	ErrNameRequired     = errors.New("room name is required")
	ErrPasswordRequired = errors.New("password is required for private rooms")
	ErrPasswordTooShort = errors.New("password too short")
	ErrWrongPassword    = errors.New("incorrect room password")

	ErrNotOwner       = errors.New("only the room owner may invite")
	ErrNotPrivateRoom = errors.New("invitations are only for private rooms")
	ErrNoInvitees     = errors.New("invitee list is empty")
	ErrNoNewInvitees  = errors.New("all users are already invited")
	ErrInviteeUnknown = errors.New("some invitees do not exist")

	ErrSessionNotFound = errors.New("video session not found")
	ErrSessionActive   = errors.New("video session already active")
	ErrSessionEnded    = errors.New("video session already ended")
	ErrSessionClosed   = errors.New("video session is closed")
	ErrNotInSession    = errors.New("user not part of this session")

	ErrUserNotFound = errors.New("user not found")
	ErrUserBanned   = errors.New("user is banned")
)
