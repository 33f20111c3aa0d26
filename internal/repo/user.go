package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utcNow()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Проверки дают понятную ошибку, гонку между транзакциями ловят UNIQUE ограничения
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, u.Username).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrorUsernameTaken
		}

		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, u.Email).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrorEmailTaken
		}

		return tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, u.Username, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID, &u.CreatedAt)
	})
	if err != nil {
		if err = mapPgError(err); errors.Is(err, ErrorConflict) {
			return u, err
		}
		return u, fmt.Errorf("insert user: %w", err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrorNotFound
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}
