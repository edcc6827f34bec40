package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/studysync/study-service/internal/domain"
	"github.com/studysync/study-service/internal/security"
)

// In-memory стор с тем же контрактом, что у postgres.RoomRepository:
// вместимость проверяется под локом, повторное добавление — (false, nil).
type fakeRoomStore struct {
	mu    sync.Mutex
	seq   int
	rooms map[string]*domain.Room
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: make(map[string]*domain.Room)}
}

func copyRoom(r *domain.Room) *domain.Room {
	cp := *r
	cp.Participants = append([]int64(nil), r.Participants...)
	cp.Invitees = append([]int64(nil), r.Invitees...)
	return &cp
}

func (s *fakeRoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Name == room.Name {
			return domain.ErrRoomNameTaken
		}
	}
	s.seq++
	room.ID = fmt.Sprintf("room-%d", s.seq)
	s.rooms[room.ID] = copyRoom(room)
	return nil
}

func (s *fakeRoomStore) GetByID(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (s *fakeRoomStore) GetByName(_ context.Context, name string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Name == name {
			return copyRoom(r), nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (s *fakeRoomStore) List(_ context.Context, limit int, cursor string) ([]domain.RoomSummary, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomSummary
	for _, r := range s.rooms {
		out = append(out, domain.RoomSummary{ID: r.ID, Name: r.Name, Type: r.Type})
	}
	return out, "", nil
}

func (s *fakeRoomStore) AddParticipant(_ context.Context, roomID string, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false, domain.ErrRoomNotFound
	}
	if r.IsParticipant(userID) {
		return false, nil
	}
	if int64(len(r.Participants)) >= r.Capacity {
		return false, domain.ErrRoomFull
	}
	r.Participants = append(r.Participants, userID)
	return true, nil
}

func (s *fakeRoomStore) RemoveParticipant(_ context.Context, roomID string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for i, id := range r.Participants {
		if id == userID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotInRoom
}

func (s *fakeRoomStore) AddInvitees(_ context.Context, roomID string, userIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for _, id := range userIDs {
		if !r.IsInvited(id) {
			r.Invitees = append(r.Invitees, id)
		}
	}
	return nil
}

func (s *fakeRoomStore) Members(_ context.Context, roomID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	out := make([]domain.Member, 0, len(r.Participants))
	for _, id := range r.Participants {
		out = append(out, domain.Member{UserID: id})
	}
	return out, nil
}

func (s *fakeRoomStore) PasswordHash(_ context.Context, roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return r.PasswordHash, nil
}

type fakeUserStore struct {
	known map[int64]bool
}

func (s *fakeUserStore) AllExist(_ context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		if !s.known[id] {
			return false, nil
		}
	}
	return true, nil
}

func newRoomService(known ...int64) (*RoomService, *fakeRoomStore) {
	users := &fakeUserStore{known: make(map[int64]bool)}
	for _, id := range known {
		users.known[id] = true
	}
	store := newFakeRoomStore()
	// MinCost, чтобы тесты не жгли CPU на bcrypt
	svc := NewRoomService(store, users, &security.BcryptConfig{Cost: bcrypt.MinCost, MinLength: 6})
	return svc, store
}

func TestCreateRoomHashesPrivatePassword(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "algebra", domain.RoomPrivate, "hunter22", 0, 1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.PasswordHash == "" || room.PasswordHash == "hunter22" {
		t.Fatalf("password stored in the open: %q", room.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte("hunter22")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if room.Capacity != domain.DefaultCapacity {
		t.Fatalf("capacity = %d, want default %d", room.Capacity, domain.DefaultCapacity)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()

	if _, err := svc.CreateRoom(ctx, "   ", domain.RoomPublic, "", 0, 1); !errors.Is(err, domain.ErrNameRequired) {
		t.Fatalf("blank name: got %v", err)
	}
	if _, err := svc.CreateRoom(ctx, "x", "hidden", "", 0, 1); !errors.Is(err, domain.ErrInvalidRoomType) {
		t.Fatalf("bad type: got %v", err)
	}
	if _, err := svc.CreateRoom(ctx, "x", domain.RoomPrivate, "123", 0, 1); !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Fatalf("short password: got %v", err)
	}

	if _, err := svc.CreateRoom(ctx, "dup", domain.RoomPublic, "", 0, 1); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateRoom(ctx, "dup", domain.RoomPublic, "", 0, 2); !errors.Is(err, domain.ErrRoomNameTaken) {
		t.Fatalf("duplicate name: got %v", err)
	}
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, "physics", domain.RoomPublic, "", 2, 1); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := svc.JoinRoom(ctx, "physics", 7, ""); err != nil {
		t.Fatalf("first join: %v", err)
	}
	room, err := svc.JoinRoom(ctx, "physics", 7, "")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if len(room.Participants) != 1 {
		t.Fatalf("participants = %v, want single entry", room.Participants)
	}
}

func TestJoinRoomPassword(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, "secret", domain.RoomPrivate, "hunter22", 0, 1); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := svc.JoinRoom(ctx, "secret", 7, "wrong"); !errors.Is(err, domain.ErrWrongPassword) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, "secret", 7, "hunter22"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, "tiny", domain.RoomPublic, "", 2, 1); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, uid := range []int64{1, 2} {
		if _, err := svc.JoinRoom(ctx, "tiny", uid, ""); err != nil {
			t.Fatalf("join %d: %v", uid, err)
		}
	}

	if _, err := svc.JoinRoom(ctx, "tiny", 3, ""); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("over capacity: got %v", err)
	}
	// повторный вход участника полной комнаты — no-op успех
	if _, err := svc.JoinRoom(ctx, "tiny", 2, ""); err != nil {
		t.Fatalf("member rejoin of full room: %v", err)
	}
}

// Гонка за последние места: вместимость никогда не превышается, входит
// ровно capacity человек.
func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	svc, store := newRoomService()
	ctx := context.Background()
	room, err := svc.CreateRoom(ctx, "rush", domain.RoomPublic, "", 5, 1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	const contenders = 20
	var wg sync.WaitGroup
	var joined, full int64
	var mu sync.Mutex
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := svc.JoinRoom(ctx, "rush", uid, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, domain.ErrRoomFull):
				full++
			default:
				t.Errorf("join %d: %v", uid, err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	if joined != 5 || full != contenders-5 {
		t.Fatalf("joined=%d full=%d, want 5/%d", joined, full, contenders-5)
	}
	got, err := store.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if int64(len(got.Participants)) != got.Capacity {
		t.Fatalf("roster %d exceeds capacity %d", len(got.Participants), got.Capacity)
	}
}

func TestLeaveRoom(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, "bio", domain.RoomPublic, "", 0, 1); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := svc.JoinRoom(ctx, "bio", 7, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	room, err := svc.LeaveRoom(ctx, "bio", 7)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(room.Participants) != 0 {
		t.Fatalf("participants after leave = %v", room.Participants)
	}
	if _, err := svc.LeaveRoom(ctx, "bio", 7); !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("leave twice: got %v", err)
	}
}

func TestInviteRoundTrip(t *testing.T) {
	svc, _ := newRoomService(2, 3)
	ctx := context.Background()
	room, err := svc.CreateRoom(ctx, "club", domain.RoomPrivate, "hunter22", 0, 1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	invitees, err := svc.Invite(ctx, room.ID, 1, []int64{2, 3, 3})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if len(invitees) != 2 {
		t.Fatalf("invitees = %v, want [2 3]", invitees)
	}

	if _, err := svc.Invite(ctx, room.ID, 2, []int64{3}); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("non-owner invite: got %v", err)
	}
	if _, err := svc.Invite(ctx, room.ID, 1, []int64{99}); !errors.Is(err, domain.ErrInviteeUnknown) {
		t.Fatalf("unknown invitee: got %v", err)
	}
	if _, err := svc.Invite(ctx, room.ID, 1, []int64{2}); !errors.Is(err, domain.ErrNoNewInvitees) {
		t.Fatalf("repeat invite: got %v", err)
	}

	// приглашённый входит с верным паролем: попадает в participants,
	// а invitees при этом не меняются
	if _, err := svc.JoinRoom(ctx, "club", 2, "hunter22"); err != nil {
		t.Fatalf("invited user join: %v", err)
	}

	got, _, err := svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if !got.IsParticipant(2) {
		t.Fatalf("joined invitee missing from participants: %v", got.Participants)
	}
	if len(got.Invitees) != 2 || !got.IsInvited(2) || !got.IsInvited(3) {
		t.Fatalf("invitees changed by join: %v", got.Invitees)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc, _ := newRoomService()
	ctx := context.Background()
	private, err := svc.CreateRoom(ctx, "sec", domain.RoomPrivate, "hunter22", 0, 1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	public, err := svc.CreateRoom(ctx, "pub", domain.RoomPublic, "", 0, 1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	cases := []struct {
		roomID    string
		candidate string
		want      bool
	}{
		{private.ID, "hunter22", true},
		{private.ID, "wrong", false},
		{public.ID, "anything", false}, // пустой хеш не матчится никогда
	}
	for _, tc := range cases {
		ok, err := svc.VerifyPassword(ctx, tc.roomID, tc.candidate)
		if err != nil {
			t.Fatalf("VerifyPassword(%s): %v", tc.roomID, err)
		}
		if ok != tc.want {
			t.Fatalf("VerifyPassword(%s, %q) = %v, want %v", tc.roomID, tc.candidate, ok, tc.want)
		}
	}

	if _, err := svc.VerifyPassword(ctx, "missing", "x"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("missing room: got %v", err)
	}
}
