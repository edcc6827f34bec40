package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/studysync/study-service/internal/domain"
	"github.com/studysync/study-service/internal/service"
	httpmw "github.com/studysync/study-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc    *service.RoomService
	sessionSvc *service.SessionService
}

func NewHandler(room *service.RoomService, session *service.SessionService) *Handler {
	return &Handler{
		roomSvc:    room,
		sessionSvc: session,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func roomResponse(room *domain.Room) RoomResponse {
	// пустые составы наружу уходят как [], не null
	participants := room.Participants
	if participants == nil {
		participants = []int64{}
	}
	invitees := room.Invitees
	if invitees == nil {
		invitees = []int64{}
	}
	return RoomResponse{
		ID:                 room.ID,
		Name:               room.Name,
		Type:               string(room.Type),
		Capacity:           room.Capacity,
		Participants:       participants,
		Invitees:           invitees,
		CreatedBy:          room.CreatedBy,
		CreatedAt:          room.CreatedAt,
		VideoSessionActive: room.VideoSessionActive,
	}
}

func sessionResponse(s *domain.VideoSession) SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		RoomID:       s.RoomID,
		Participants: s.Participants,
		Status:       string(s.Status),
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
	}
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, domain.RoomType(req.Type), req.Password, req.Capacity, userID)
	if err != nil {
		writeError(r.Context(), w, "CreateRoom", err)
		return
	}

	writeJSON(w, http.StatusCreated, roomResponse(room))
}

// POST /rooms/{id}/invite
func (h *Handler) InviteUsers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	invitees, err := h.roomSvc.Invite(r.Context(), roomID, userID, req.Invitees)
	if err != nil {
		writeError(r.Context(), w, "InviteUsers", err)
		return
	}

	writeJSON(w, http.StatusOK, InviteResponse{Invitees: invitees})
}

// POST /rooms/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	room, err := h.roomSvc.JoinRoom(r.Context(), req.RoomName, userID, req.Password)
	if err != nil {
		writeError(r.Context(), w, "JoinRoom", err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse(room))
}

// POST /rooms/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req LeaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	room, err := h.roomSvc.LeaveRoom(r.Context(), req.RoomName, userID)
	if err != nil {
		writeError(r.Context(), w, "LeaveRoom", err)
		return
	}

	writeJSON(w, http.StatusOK, roomResponse(room))
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	room, members, err := h.roomSvc.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(r.Context(), w, "GetRoom", err)
		return
	}

	resp := RoomDetailsResponse{RoomResponse: roomResponse(room)}
	resp.Members = make([]MemberItem, 0, len(members))
	for _, m := range members {
		resp.Members = append(resp.Members, MemberItem{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			JoinedAt:    m.JoinedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	rooms, next, err := h.roomSvc.ListRooms(r.Context(), limit, cursor)
	if err != nil {
		writeError(r.Context(), w, "ListRooms", err)
		return
	}

	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms)), NextCursor: next}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, RoomItem{
			ID:                 rm.ID,
			Name:               rm.Name,
			Type:               string(rm.Type),
			CreatedBy:          rm.CreatedBy,
			ParticipantCount:   rm.ParticipantCount,
			VideoSessionActive: rm.VideoSessionActive,
			CreatedAt:          rm.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /rooms/{id}/verify-password
func (h *Handler) VerifyRoomPassword(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req VerifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	ok, err := h.roomSvc.VerifyPassword(r.Context(), roomID, req.Password)
	if err != nil {
		writeError(r.Context(), w, "VerifyRoomPassword", err)
		return
	}

	writeJSON(w, http.StatusOK, VerifyPasswordResponse{IsValid: ok})
}

// POST /sessions/start
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "roomId is required"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	sess, err := h.sessionSvc.Start(r.Context(), req.RoomID, userID)
	if err != nil {
		writeError(r.Context(), w, "StartSession", err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// POST /sessions/{id}/end
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	sess, err := h.sessionSvc.End(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, "EndSession", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(sess))
}
