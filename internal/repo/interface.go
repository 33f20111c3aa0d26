package repo

import (
	"context"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Все методы чтения и изменения ограничены владельцем (userID).
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, userID, id int64) (model.Task, error)
	List(ctx context.Context, userID int64) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	SaveIdempotencyKey(ctx context.Context, userID int64, key string, taskID int64) error
	GetIdempotencyKey(ctx context.Context, userID int64, key string) (int64, error)
}

// UserRepository определяет интерфейс хранилища учетных данных
type UserRepository interface {
	// Create проверяет уникальность username и email и вставляет пользователя в одной транзакции
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// Pinger - хранилище, которое умеет проверять соединение (для /health)
type Pinger interface {
	Ping(ctx context.Context) error
}
