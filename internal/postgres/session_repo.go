package postgres

import (
	"context"
	"errors"

	"github.com/studysync/study-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start создаёт активную сессию для комнаты. Строка комнаты блокируется,
// поэтому два параллельных старта по одной комнате не создадут две активных.
func (r *SessionRepository) Start(ctx context.Context, roomID string, userID int64) (*domain.VideoSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT true FROM rooms WHERE id=$1 FOR UPDATE`, roomID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	var activeID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM video_sessions WHERE room_id=$1 AND status='active'`, roomID).Scan(&activeID)
	switch {
	case err == nil:
		return nil, domain.ErrSessionActive
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	s := &domain.VideoSession{
		RoomID:       roomID,
		Status:       domain.SessionActive,
		Participants: []int64{userID},
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO video_sessions (room_id, status)
		VALUES ($1, 'active')
		RETURNING id, started_at`, roomID).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO video_session_participants (session_id, user_id)
		VALUES ($1, $2)`, s.ID, userID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE rooms SET video_session_active=true WHERE id=$1`, roomID); err != nil {
		return nil, err
	}

	return s, tx.Commit(ctx)
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.VideoSession, error) {
	var (
		s      domain.VideoSession
		status string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, room_id, status, started_at, ended_at
		FROM video_sessions WHERE id=$1`, id).
		Scan(&s.ID, &s.RoomID, &status, &s.StartedAt, &s.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	s.Status = domain.SessionStatus(status)

	if s.Participants, err = r.participants(ctx, r.db, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindActiveByRoom — активная сессия комнаты, если есть.
func (r *SessionRepository) FindActiveByRoom(ctx context.Context, roomID string) (*domain.VideoSession, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM video_sessions WHERE room_id=$1 AND status='active'`, roomID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

// AddParticipant: сессия в статусе ended неизменяема.
func (r *SessionRepository) AddParticipant(ctx context.Context, sessionID string, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status, _, err := r.lock(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if status == domain.SessionEnded {
		return domain.ErrSessionClosed
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO video_session_participants (session_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, sessionID, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RemoveParticipant убирает участника; последний вышедший переводит сессию в
// ended (ровно один раз — под блокировкой строки сессии).
func (r *SessionRepository) RemoveParticipant(ctx context.Context, sessionID string, userID int64) (*domain.VideoSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	status, roomID, err := r.lock(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if status == domain.SessionEnded {
		return nil, domain.ErrSessionClosed
	}

	cmd, err := tx.Exec(ctx,
		`DELETE FROM video_session_participants WHERE session_id=$1 AND user_id=$2`,
		sessionID, userID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotInSession
	}

	var remaining int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_session_participants WHERE session_id=$1`,
		sessionID).Scan(&remaining); err != nil {
		return nil, err
	}
	if remaining == 0 {
		if err := r.markEnded(ctx, tx, sessionID, roomID); err != nil {
			return nil, err
		}
	}

	s, err := r.snapshot(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	return s, tx.Commit(ctx)
}

// End — явный терминальный переход.
func (r *SessionRepository) End(ctx context.Context, sessionID string) (*domain.VideoSession, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	status, roomID, err := r.lock(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if status == domain.SessionEnded {
		return nil, domain.ErrSessionEnded
	}

	if err := r.markEnded(ctx, tx, sessionID, roomID); err != nil {
		return nil, err
	}

	s, err := r.snapshot(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	return s, tx.Commit(ctx)
}

// -------- helpers --------

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *SessionRepository) lock(ctx context.Context, tx pgx.Tx, sessionID string) (domain.SessionStatus, string, error) {
	var (
		status string
		roomID string
	)
	err := tx.QueryRow(ctx,
		`SELECT status, room_id FROM video_sessions WHERE id=$1 FOR UPDATE`, sessionID).
		Scan(&status, &roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", domain.ErrSessionNotFound
		}
		return "", "", err
	}
	return domain.SessionStatus(status), roomID, nil
}

func (r *SessionRepository) markEnded(ctx context.Context, tx pgx.Tx, sessionID, roomID string) error {
	if _, err := tx.Exec(ctx,
		`UPDATE video_sessions SET status='ended', ended_at=now() WHERE id=$1`, sessionID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx,
		`UPDATE rooms SET video_session_active=false WHERE id=$1`, roomID)
	return err
}

func (r *SessionRepository) snapshot(ctx context.Context, tx pgx.Tx, sessionID string) (*domain.VideoSession, error) {
	var (
		s      domain.VideoSession
		status string
	)
	err := tx.QueryRow(ctx, `
		SELECT id, room_id, status, started_at, ended_at
		FROM video_sessions WHERE id=$1`, sessionID).
		Scan(&s.ID, &s.RoomID, &status, &s.StartedAt, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)

	if s.Participants, err = r.participants(ctx, tx, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) participants(ctx context.Context, q querier, sessionID string) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id FROM video_session_participants WHERE session_id=$1 ORDER BY user_id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
