package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/studysync/study-service/internal/domain"
)

// In-memory стор с контрактом postgres.SessionRepository: одна активная
// сессия на комнату, авто-end при уходе последнего, ended терминально.
type fakeSessionStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*domain.VideoSession
	active   map[string]string // roomID -> sessionID
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*domain.VideoSession),
		active:   make(map[string]string),
	}
}

func copySession(s *domain.VideoSession) *domain.VideoSession {
	cp := *s
	cp.Participants = append([]int64(nil), s.Participants...)
	return &cp
}

func (f *fakeSessionStore) Start(_ context.Context, roomID string, userID int64) (*domain.VideoSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[roomID]; busy {
		return nil, domain.ErrSessionActive
	}
	f.seq++
	sess := &domain.VideoSession{
		ID:           fmt.Sprintf("sess-%d", f.seq),
		RoomID:       roomID,
		Participants: []int64{userID},
		Status:       domain.SessionActive,
		StartedAt:    time.Now(),
	}
	f.sessions[sess.ID] = sess
	f.active[roomID] = sess.ID
	return copySession(sess), nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*domain.VideoSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (f *fakeSessionStore) FindActiveByRoom(_ context.Context, roomID string) (*domain.VideoSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[roomID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(f.sessions[id]), nil
}

func (f *fakeSessionStore) AddParticipant(_ context.Context, sessionID string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.Status == domain.SessionEnded {
		return domain.ErrSessionClosed
	}
	if !sess.HasParticipant(userID) {
		sess.Participants = append(sess.Participants, userID)
	}
	return nil
}

func (f *fakeSessionStore) RemoveParticipant(_ context.Context, sessionID string, userID int64) (*domain.VideoSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.Status == domain.SessionEnded {
		return nil, domain.ErrSessionClosed
	}
	found := false
	for i, id := range sess.Participants {
		if id == userID {
			sess.Participants = append(sess.Participants[:i], sess.Participants[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrNotInSession
	}
	if len(sess.Participants) == 0 {
		f.end(sess)
	}
	return copySession(sess), nil
}

func (f *fakeSessionStore) End(_ context.Context, sessionID string) (*domain.VideoSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.Status == domain.SessionEnded {
		return nil, domain.ErrSessionEnded
	}
	f.end(sess)
	return copySession(sess), nil
}

func (f *fakeSessionStore) end(sess *domain.VideoSession) {
	now := time.Now()
	sess.Status = domain.SessionEnded
	sess.EndedAt = &now
	delete(f.active, sess.RoomID)
}

func TestStartSecondSessionConflicts(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())
	ctx := context.Background()

	first, err := svc.Start(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Status != domain.SessionActive || !first.HasParticipant(1) {
		t.Fatalf("fresh session = %+v", first)
	}

	if _, err := svc.Start(ctx, "room-1", 2); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("second start: got %v", err)
	}
	// в другой комнате — без конфликта
	if _, err := svc.Start(ctx, "room-2", 2); err != nil {
		t.Fatalf("start in another room: %v", err)
	}

	if _, err := svc.End(ctx, first.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := svc.Start(ctx, "room-1", 2); err != nil {
		t.Fatalf("start after end: %v", err)
	}
}

func TestSessionAutoEndsWhenLastLeaves(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Join(ctx, sess.ID, 2); err != nil {
		t.Fatalf("Join: %v", err)
	}

	after, err := svc.Leave(ctx, sess.ID, 1)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if after.Status != domain.SessionActive {
		t.Fatalf("session ended with a participant remaining: %+v", after)
	}

	last, err := svc.Leave(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("last Leave: %v", err)
	}
	if last.Status != domain.SessionEnded || last.EndedAt == nil {
		t.Fatalf("session not ended after last leave: %+v", last)
	}

	// ended терминально: ни входов, ни выходов
	if err := svc.Join(ctx, sess.ID, 3); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("join ended session: got %v", err)
	}
	if _, err := svc.Leave(ctx, sess.ID, 2); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("leave ended session: got %v", err)
	}
}

func TestEndIsNotIdempotent(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := svc.End(ctx, sess.ID); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("double End: got %v", err)
	}
}

func TestLeaveStrangerIsError(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Leave(ctx, sess.ID, 42); !errors.Is(err, domain.ErrNotInSession) {
		t.Fatalf("stranger leave: got %v", err)
	}
	if _, err := svc.Leave(ctx, "missing", 1); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: got %v", err)
	}
}

// JoinCall/LeaveCall — best-effort: отсутствие сессии или её закрытие
// не должно мешать signaling-релею.
func TestCallHooksAreTolerant(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store)
	ctx := context.Background()

	if err := svc.JoinCall(ctx, "room-1", 1); err != nil {
		t.Fatalf("JoinCall without session: %v", err)
	}
	if err := svc.LeaveCall(ctx, "room-1", 1); err != nil {
		t.Fatalf("LeaveCall without session: %v", err)
	}

	sess, err := svc.Start(ctx, "room-1", 1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.JoinCall(ctx, "room-1", 2); err != nil {
		t.Fatalf("JoinCall: %v", err)
	}
	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasParticipant(2) {
		t.Fatalf("hook did not attach participant: %+v", got)
	}

	// уход не-участника через хук — тихий no-op
	if err := svc.LeaveCall(ctx, "room-1", 99); err != nil {
		t.Fatalf("LeaveCall for stranger: %v", err)
	}
}
