package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"proctor-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (nickname, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	return r.pool.QueryRow(ctx, query,
		user.Nickname, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, nickname, password_hash, role, created_at FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Nickname, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, nickname, password_hash, role, created_at FROM users WHERE nickname = $1`

	err := r.pool.QueryRow(ctx, query, nickname).Scan(
		&user.ID, &user.Nickname, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
