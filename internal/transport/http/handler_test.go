package http

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/studysync/study-service/internal/domain"
)

// Свежая комната без участников и приглашений должна отдавать пустые
// массивы, а не null.
func TestRoomResponseEmptySetsAreArrays(t *testing.T) {
	room := &domain.Room{
		ID:       "room-1",
		Name:     "fresh",
		Type:     domain.RoomPublic,
		Capacity: domain.DefaultCapacity,
	}

	data, err := json.Marshal(roomResponse(room))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, `"participants":[]`) {
		t.Fatalf("participants not an empty array: %s", body)
	}
	if !strings.Contains(body, `"invitees":[]`) {
		t.Fatalf("invitees not an empty array: %s", body)
	}
	if strings.Contains(body, "null") {
		t.Fatalf("null leaked into response: %s", body)
	}
}

func TestRoomResponseKeepsLoadedSets(t *testing.T) {
	room := &domain.Room{
		ID:           "room-2",
		Name:         "busy",
		Type:         domain.RoomPrivate,
		Capacity:     2,
		Participants: []int64{1, 2},
		Invitees:     []int64{3},
	}

	resp := roomResponse(room)
	if len(resp.Participants) != 2 || len(resp.Invitees) != 1 {
		t.Fatalf("sets lost in mapping: %+v", resp)
	}
}
