package postgres

import (
	"context"
	"errors"

	"github.com/studysync/study-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (name, type, capacity, password_hash, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		room.Name, string(room.Type), room.Capacity, room.PasswordHash, room.CreatedBy).
		Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrRoomNameTaken
		}
		return err
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return r.get(ctx, `WHERE id=$1`, id)
}

func (r *RoomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	return r.get(ctx, `WHERE name=$1`, name)
}

func (r *RoomRepository) get(ctx context.Context, where string, arg any) (*domain.Room, error) {
	var (
		rm       domain.Room
		roomType string
	)
	query := `
		SELECT id, name, type, capacity, COALESCE(password_hash, ''),
		       created_by, created_at, video_session_active
		FROM rooms ` + where
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rm.ID, &rm.Name, &roomType, &rm.Capacity, &rm.PasswordHash,
		&rm.CreatedBy, &rm.CreatedAt, &rm.VideoSessionActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	rm.Type = domain.RoomType(roomType)

	if rm.Participants, err = r.userIDs(ctx, `SELECT user_id FROM room_participants WHERE room_id=$1 ORDER BY joined_at`, rm.ID); err != nil {
		return nil, err
	}
	if rm.Invitees, err = r.userIDs(ctx, `SELECT user_id FROM room_invitees WHERE room_id=$1 ORDER BY invited_at`, rm.ID); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) userIDs(ctx context.Context, query, roomID string) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, roomID)
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

// List возвращает summary-строки (без хеша пароля) с курсорной пагинацией.
func (r *RoomRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.RoomSummary, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT r.id, r.name, r.type, r.created_by, r.created_at,
		       r.video_session_active, COUNT(p.user_id)
		FROM rooms r
		LEFT JOIN room_participants p ON p.room_id = r.id
		WHERE ($1::timestamptz IS NULL OR r.created_at < $1
		       OR (r.created_at = $1 AND r.id < $2))
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.RoomSummary
	for rows.Next() {
		var (
			s        domain.RoomSummary
			roomType string
		)
		if err := rows.Scan(&s.ID, &s.Name, &roomType, &s.CreatedBy, &s.CreatedAt,
			&s.VideoSessionActive, &s.ParticipantCount); err != nil {
			return nil, "", err
		}
		s.Type = domain.RoomType(roomType)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(out) == limit {
		last := out[len(out)-1]
		nextCursor, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, nextCursor, nil
}

// AddParticipant — защищён от гонок по capacity: строка комнаты блокируется,
// параллельные входы в ту же комнату сериализуются. Повторный вход участника —
// no-op (added=false), лимит при этом не проверяется.
func (r *RoomRepository) AddParticipant(ctx context.Context, roomID string, userID int64) (added bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var capacity int64
	err = tx.QueryRow(ctx, `SELECT capacity FROM rooms WHERE id=$1 FOR UPDATE`, roomID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrRoomNotFound
		}
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id=$1 AND user_id=$2)`,
		roomID, userID).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, tx.Commit(ctx)
	}

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_participants WHERE room_id=$1`, roomID).Scan(&count); err != nil {
		return false, err
	}
	if count >= capacity {
		return false, domain.ErrRoomFull
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roomID, userID); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func (r *RoomRepository) RemoveParticipant(ctx context.Context, roomID string, userID int64) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM room_participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}

func (r *RoomRepository) AddInvitees(ctx context.Context, roomID string, userIDs []int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_invitees (room_id, user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, roomID, userIDs)
	return err
}

// Members — участники с разрешёнными полями пользователя.
func (r *RoomRepository) Members(ctx context.Context, roomID string) ([]domain.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.user_id, u.display_name, p.joined_at
		FROM room_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.room_id = $1
		ORDER BY p.joined_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PasswordHash отдаёт хеш только внутрь сервисного слоя (verify-password).
func (r *RoomRepository) PasswordHash(ctx context.Context, roomID string) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(password_hash, '') FROM rooms WHERE id=$1`, roomID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrRoomNotFound
		}
		return "", err
	}
	return hash, nil
}
