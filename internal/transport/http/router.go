package http

import (
	"net/http"
	"time"

	"github.com/studysync/study-service/internal/domain"
	httpmw "github.com/studysync/study-service/internal/transport/http/middleware"
	"github.com/studysync/study-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(h *Handler, auth func(http.Handler) http.Handler, wsServer *ws.Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	// Signaling relay: комнаты выбираются сообщением joinCall
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(auth)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.With(httpmw.RequireRoles(domain.RoleStudent, domain.RoleTutor, domain.RoleAdmin)).
				Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)
			rm.Post("/join", h.JoinRoom)
			rm.Post("/leave", h.LeaveRoom)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Post("/invite", h.InviteUsers)
				rr.Post("/verify-password", h.VerifyRoomPassword)
			})
		})

		pr.Route("/sessions", func(sm chi.Router) {
			sm.Post("/start", h.StartSession)
			sm.Post("/{id}/end", h.EndSession)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
