package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// SessionHook — best-effort привязка присутствия в звонке к активной
// видеосессии комнаты. Реализуется service.SessionService.
type SessionHook interface {
	JoinCall(ctx context.Context, roomID string, userID int64) error
	LeaveCall(ctx context.Context, roomID string, userID int64) error
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	sessions SessionHook

	pingEvery time.Duration
}

func NewServer(hub *Hub, sessions SessionHook, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: pingEvery,
	}
}

// WS endpoint: GET /ws. Комнаты подключение выбирает сообщением joinCall,
// одно соединение может состоять в нескольких комнатах.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.teardown(r.Context(), c)
}

// teardown — детерминированная уборка при разрыве: соединение убирается из
// всех комнат ровно один раз (Drop идемпотентен), остальным уходит userLeft.
func (s *Server) teardown(ctx context.Context, c Conn) {
	for _, m := range s.hub.Drop(c) {
		s.hub.Relay(m.RoomID, c, Message{
			Event:   EventUserLeft,
			Payload: UserLeftPayload{UserID: m.UserID},
		})
		s.leaveCall(ctx, m.RoomID, m.UserID)
	}
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(ctx, c, data)
	}
}

// handleFrame разбирает один кадр. Битый вход никогда не роняет соединение:
// отправителю уходит событие error, остальные комнаты продолжают обслуживаться.
func (s *Server) handleFrame(ctx context.Context, c Conn, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.sendError(c, "malformed message")
		return
	}

	switch in.Event {
	case EventJoinCall:
		s.handleJoinCall(ctx, c, in.Payload)
	case EventOffer, EventAnswer, EventCandidate:
		s.handleSignal(c, in.Event, in.Payload)
	default:
		s.sendError(c, "unknown event: "+in.Event)
	}
}

func (s *Server) handleJoinCall(ctx context.Context, c Conn, raw json.RawMessage) {
	var p JoinCallPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.UserID == "" {
		s.sendError(c, "invalid joinCall request")
		return
	}

	s.hub.Join(p.RoomID, p.UserID, c)
	s.hub.Relay(p.RoomID, c, Message{
		Event:   EventUserJoined,
		Payload: UserJoinedPayload{UserID: p.UserID, RoomID: p.RoomID},
	})
	s.joinCall(ctx, p.RoomID, p.UserID)
}

func (s *Server) handleSignal(c Conn, event string, raw json.RawMessage) {
	var p signalIn
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" || p.UserID == "" || len(p.blob(event)) == 0 {
		s.sendError(c, "invalid "+event)
		return
	}

	out := SignalPayload{UserID: p.UserID}
	switch event {
	case EventOffer:
		out.Offer = p.Offer
	case EventAnswer:
		out.Answer = p.Answer
	case EventCandidate:
		out.Candidate = p.Candidate
	}
	s.hub.Relay(p.RoomID, c, Message{Event: event, Payload: out})
}

func (s *Server) sendError(c Conn, msg string) {
	_ = c.Send(Message{Event: EventError, Payload: ErrorPayload{Message: msg}})
}

func (s *Server) joinCall(ctx context.Context, roomID, userID string) {
	if s.sessions == nil {
		return
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	if err := s.sessions.JoinCall(ctx, roomID, uid); err != nil {
		slog.Warn("ws join call hook failed", "room", roomID, "user", userID, "err", err)
	}
}

func (s *Server) leaveCall(ctx context.Context, roomID, userID string) {
	if s.sessions == nil {
		return
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	if err := s.sessions.LeaveCall(ctx, roomID, uid); err != nil {
		slog.Debug("ws leave call hook failed", "room", roomID, "user", userID, "err", err)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- wsConn ---

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Send сериализует записи в соединение; порядок сообщений одного отправителя
// сохраняется, потому что пересылка идёт на его read-горутине.
func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
