package postgres

import (
	"context"
	"errors"

	"github.com/studysync/study-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository — read-only проекция таблицы users; аккаунтами владеет
// внешний credential-сервис.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, role, is_banned, display_name FROM users WHERE id=$1`, id).
		Scan(&u.ID, &role, &u.Banned, &u.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if parsed, ok := domain.ParseRole(role); ok {
		u.Role = parsed
	} else {
		u.Role = domain.RoleStudent
	}
	return &u, nil
}

// AllExist: все ли id существуют (для валидации списка приглашаемых).
func (r *UserRepository) AllExist(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT id) FROM users WHERE id = ANY($1::bigint[])`, ids).Scan(&count)
	if err != nil {
		return false, err
	}

	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	return count == int64(len(unique)), nil
}
