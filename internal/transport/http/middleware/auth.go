package httpmw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/studysync/study-service/internal/domain"
	"github.com/studysync/study-service/internal/security"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyRole   ctxKey = "role"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type TokenVerifier interface {
	ParseAndValidate(token string) (*security.AccessClaims, error)
}

type UserGetter interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// Auth валидирует Bearer-токен (выпущен внешним credential-сервисом) и
// кладёт userID и роль в контекст. Забаненные пользователи не проходят.
func Auth(verifier TokenVerifier, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.ParseAndValidate(strings.TrimSpace(auth[7:]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			userID, err := security.SubjectAsUserID(claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			user, err := users.Get(r.Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					writeError(w, http.StatusNotFound, "user not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if user.Banned {
				writeError(w, http.StatusForbidden, "account is banned")
				return
			}

			// роль из стора приоритетнее клейма токена
			role := user.Role
			if role == "" {
				role = security.RoleFromClaims(claims)
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			ctx = context.WithValue(ctx, ctxKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles — capability-check по enum ролей, а не по строкам из запроса.
func RequireRoles(allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromCtx(r.Context())
			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func UserIDFromCtx(ctx context.Context) int64 {
	if v := ctx.Value(ctxKeyUserID); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

func RoleFromCtx(ctx context.Context) domain.Role {
	if v := ctx.Value(ctxKeyRole); v != nil {
		if role, ok := v.(domain.Role); ok {
			return role
		}
	}
	return ""
}
