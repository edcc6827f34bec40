package ws

import "encoding/json"

// События signaling-протокола. Сервер не разбирает содержимое offer/answer/
// candidate — это непрозрачные блобы, которые пересылаются как есть.
const (
	EventJoinCall  = "joinCall"
	EventOffer     = "offer"
	EventAnswer    = "answer"
	EventCandidate = "candidate"

	EventUserJoined = "userJoined"
	EventUserLeft   = "userLeft"
	EventError      = "error"
)

type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inbound — конверт входящего кадра; payload остаётся сырым до разбора
// по конкретному событию.
type inbound struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type JoinCallPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// signalIn — общий вход offer/answer/candidate: roomId, userId и ровно один
// блоб под именем события.
type signalIn struct {
	RoomID    string          `json:"roomId"`
	UserID    string          `json:"userId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (p *signalIn) blob(event string) json.RawMessage {
	switch event {
	case EventOffer:
		return p.Offer
	case EventAnswer:
		return p.Answer
	case EventCandidate:
		return p.Candidate
	}
	return nil
}

// SignalPayload — то, что получают остальные участники комнаты: блоб
// под тем же именем плюс отправитель. roomId наружу не дублируется.
type SignalPayload struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	UserID    string          `json:"userId"`
}

type UserJoinedPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
