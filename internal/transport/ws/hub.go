package ws

import "sync"

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Membership — пара (комната, пользователь), из которой соединение было
// удалено при уборке.
type Membership struct {
	RoomID string
	UserID string
}

// Hub — реестр signaling-подключений: roomID -> соединения. Экземпляр
// создаётся в main и инжектится в релей; никакого пакетного состояния.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]string   // roomID -> conn -> userID
	conns map[Conn]map[string]struct{} // обратный индекс для уборки
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]string),
		conns: make(map[Conn]map[string]struct{}),
	}
}

func (h *Hub) Join(roomID, userID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[Conn]string)
		h.rooms[roomID] = rs
	}
	rs[c] = userID

	cs, ok := h.conns[c]
	if !ok {
		cs = make(map[string]struct{})
		h.conns[c] = cs
	}
	cs[roomID] = struct{}{}
}

// Drop удаляет соединение из всех его комнат и возвращает, откуда оно ушло.
// Идемпотентно: повторный вызов (гонка явного ухода и разрыва транспорта)
// возвращает nil. Опустевшие комнаты убираются из карты.
func (h *Hub) Drop(c Conn) []Membership {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs, ok := h.conns[c]
	if !ok {
		return nil
	}
	delete(h.conns, c)

	var left []Membership
	for roomID := range cs {
		rs, ok := h.rooms[roomID]
		if !ok {
			continue
		}
		userID, ok := rs[c]
		if !ok {
			continue
		}
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
		left = append(left, Membership{RoomID: roomID, UserID: userID})
	}
	return left
}

// Relay отправляет msg всем соединениям комнаты, кроме sender.
func (h *Hub) Relay(roomID string, sender Conn, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[roomID]; ok {
		for c := range rs {
			if c == sender {
				continue
			}
			_ = c.Send(msg) // best-effort
		}
	}
}

// RoomSize — число соединений в комнате (для тестов и метрик логов).
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
