package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/studysync/study-service/internal/domain"
	"github.com/studysync/study-service/internal/postgres"
)

// statusOf переводит sentinel-ошибки домена в HTTP-статусы.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrInviteeUnknown):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrUserBanned):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrRoomNameTaken):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidRoomType),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrPasswordRequired),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrNotPrivateRoom),
		errors.Is(err, domain.ErrNoInvitees),
		errors.Is(err, domain.ErrNoNewInvitees),
		errors.Is(err, domain.ErrNotInRoom),
		errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrNotInSession),
		errors.Is(err, postgres.ErrInvalidCursor):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError: ошибки валидации/предусловий уходят клиенту как есть,
// инфраструктурные — логируются с деталями, наружу только общий текст.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "handler."+op, slog.Any("err", err))
		writeJSON(w, status, ErrorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
