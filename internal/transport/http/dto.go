package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Password string `json:"password,omitempty"`
	Capacity int64  `json:"capacity,omitempty"`
}

// RoomItem — summary-строка листинга; хеш пароля сюда не попадает никогда.
type RoomItem struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	CreatedBy          int64     `json:"createdBy"`
	ParticipantCount   int64     `json:"participantCount"`
	VideoSessionActive bool      `json:"videoSessionActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

type RoomsListResponse struct {
	Items      []RoomItem `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type RoomResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	Capacity           int64     `json:"capacity"`
	Participants       []int64   `json:"participants"`
	Invitees           []int64   `json:"invitees"`
	CreatedBy          int64     `json:"createdBy"`
	CreatedAt          time.Time `json:"createdAt"`
	VideoSessionActive bool      `json:"videoSessionActive"`
}

type MemberItem struct {
	UserID      int64     `json:"userId"`
	DisplayName *string   `json:"displayName,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type RoomDetailsResponse struct {
	RoomResponse
	Members []MemberItem `json:"members"`
}

type InviteRequest struct {
	Invitees []int64 `json:"invitees"`
}

type InviteResponse struct {
	Invitees []int64 `json:"invitees"`
}

type JoinRoomRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password,omitempty"`
}

type LeaveRoomRequest struct {
	RoomName string `json:"roomName"`
}

type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

type VerifyPasswordResponse struct {
	IsValid bool `json:"isValid"`
}

type StartSessionRequest struct {
	RoomID string `json:"roomId"`
}

type SessionResponse struct {
	ID           string     `json:"id"`
	RoomID       string     `json:"roomId"`
	Participants []int64    `json:"participants"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}
