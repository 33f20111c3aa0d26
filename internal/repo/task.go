package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

const taskColumns = `id, user_id, title, description, is_completed, created_at, completed_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, is_completed, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		t.UserID, t.Title, t.Description, t.IsCompleted, t.CreatedAt, t.CompletedAt)

	created, err := scanTask(row)
	if err != nil {
		return t, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (r *TaskRepo) Get(ctx context.Context, userID, id int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, userID int64) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update меняет только title, description и флаг завершения. Владелец не меняется.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $3, description = $4, is_completed = $5, completed_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		t.ID, t.UserID, t.Title, t.Description, t.IsCompleted, t.CompletedAt)

	updated, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return updated, err
}

func (r *TaskRepo) Delete(ctx context.Context, userID, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, task_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, taskID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT task_id FROM idempotency_keys WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsCompleted, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return t, err
	}
	return normalizeTimes(t), nil
}

// normalizeTimes приводит время к UTC, драйверы возвращают локальную зону
func normalizeTimes(t model.Task) model.Task {
	t.CreatedAt = t.CreatedAt.UTC()
	if t.CompletedAt != nil {
		completed := t.CompletedAt.UTC()
		t.CompletedAt = &completed
	}
	return t
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return ErrorUsernameTaken
		case "users_email_key":
			return ErrorEmailTaken
		}
		return ErrorConflict
	}
	return err
}

func utcNow() time.Time {
	return time.Now().UTC()
}
