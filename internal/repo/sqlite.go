package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

// OpenSQLite открывает файл БД и применяет схему. Одно соединение - SQLite сам сериализует запись.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on&_busy_timeout=5000"
	} else {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

type SQLiteTaskRepo struct {
	db *sql.DB
}

func NewSQLiteTaskRepo(db *sql.DB) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, is_completed, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.UserID, t.Title, t.Description, t.IsCompleted, t.CreatedAt.UTC(), utcPtr(t.CompletedAt))
	if err != nil {
		return t, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return t, fmt.Errorf("insert task: %w", err)
	}
	return r.Get(ctx, t.UserID, id)
}

func (r *SQLiteTaskRepo) Get(ctx context.Context, userID, id int64) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND user_id = ?
	`, id, userID)

	t, err := scanSQLTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *SQLiteTaskRepo) List(ctx context.Context, userID int64) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanSQLTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, is_completed = ?, completed_at = ?
		WHERE id = ? AND user_id = ?
	`, t.Title, t.Description, t.IsCompleted, utcPtr(t.CompletedAt), t.ID, t.UserID)
	if err != nil {
		return t, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return t, err
	} else if n == 0 {
		return t, ErrorNotFound
	}
	return r.Get(ctx, t.UserID, t.ID)
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *SQLiteTaskRepo) SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (user_id, key, task_id) VALUES (?, ?, ?)
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, taskID)
	return err
}

func (r *SQLiteTaskRepo) GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT task_id FROM idempotency_keys WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return id, err
}

func (r *SQLiteTaskRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type SQLiteUserRepo struct {
	db *sql.DB
}

func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utcNow()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return u, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, u.Username).Scan(&exists); err != nil {
		return u, err
	}
	if exists {
		return u, ErrorUsernameTaken
	}
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, u.Email).Scan(&exists); err != nil {
		return u, err
	}
	if exists {
		return u, ErrorEmailTaken
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		if err = mapSQLiteError(err); errors.Is(err, ErrorConflict) {
			return u, err
		}
		return u, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return u, err
	}

	return u, tx.Commit()
}

func (r *SQLiteUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrorNotFound
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, err
}

func scanSQLTask(row interface{ Scan(dest ...any) error }) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsCompleted, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return t, err
	}
	return normalizeTimes(t), nil
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		switch {
		case strings.Contains(sqliteErr.Error(), "users.username"):
			return ErrorUsernameTaken
		case strings.Contains(sqliteErr.Error(), "users.email"):
			return ErrorEmailTaken
		}
		return ErrorConflict
	}
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
