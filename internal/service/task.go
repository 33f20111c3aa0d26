package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
)

type TaskService struct {
	repo   repo.TaskRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewTaskService(repo repo.TaskRepository, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *TaskService) List(ctx context.Context, id model.Identity) ([]model.Task, error) {
	return s.repo.List(ctx, id.UserID)
}

// Get возвращает ErrorNotFound и для чужой задачи, и для несуществующей
func (s *TaskService) Get(ctx context.Context, id model.Identity, taskID int64) (model.Task, error) {
	return s.repo.Get(ctx, id.UserID, taskID)
}

func (s *TaskService) Create(ctx context.Context, id model.Identity, in model.TaskInput, idempKey string) (model.Task, error) {
	if err := s.validate(in); err != nil { // Валидация модели на корректность введенных данных
		return model.Task{}, err
	}

	if idempKey != "" { // Если ключ уже использован этим пользователем, возвращаем ранее созданную задачу
		existingID, err := s.repo.GetIdempotencyKey(ctx, id.UserID, idempKey)
		if err == nil {
			return s.repo.Get(ctx, id.UserID, existingID)
		}
		if !errors.Is(err, repo.ErrorNotFound) {
			return model.Task{}, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	// Владелец, время и флаг ставит сервер, что бы ни прислал клиент
	task, err := s.repo.Create(ctx, model.Task{
		UserID:      id.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		IsCompleted: false,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return task, err
	}

	if idempKey != "" {
		if winner, ok := s.claimIdempotencyKey(ctx, id, idempKey, task.ID); ok {
			return s.repo.Get(ctx, id.UserID, winner)
		}
	}

	s.logger.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("user_id", id.UserID))
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, id model.Identity, taskID int64, in model.TaskInput) (model.Task, error) {
	if err := s.validate(in); err != nil {
		return model.Task{}, err
	}

	current, err := s.repo.Get(ctx, id.UserID, taskID)
	if err != nil {
		return current, err
	}

	task, err := s.repo.Update(ctx, applyUpdate(current, in, s.now().UTC()))
	if err != nil {
		return task, err
	}

	s.logger.Info("task updated", zap.Int64("task_id", task.ID), zap.Int64("user_id", id.UserID))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id model.Identity, taskID int64) error {
	if err := s.repo.Delete(ctx, id.UserID, taskID); err != nil {
		return err
	}

	s.logger.Info("task deleted", zap.Int64("task_id", taskID), zap.Int64("user_id", id.UserID))
	return nil
}

// claimIdempotencyKey привязывает ключ к задаче. Если параллельный запрос с тем же ключом
// успел раньше, наша копия удаляется и возвращается id победителя.
func (s *TaskService) claimIdempotencyKey(ctx context.Context, id model.Identity, key string, taskID int64) (int64, bool) {
	if err := s.repo.SaveIdempotencyKey(ctx, id.UserID, key, taskID); err != nil {
		s.logger.Warn("failed to save idempotency key", zap.Int64("task_id", taskID), zap.Error(err))
		return 0, false
	}

	winner, err := s.repo.GetIdempotencyKey(ctx, id.UserID, key)
	if err != nil || winner == taskID {
		return 0, false
	}

	if err := s.repo.Delete(ctx, id.UserID, taskID); err != nil {
		s.logger.Warn("failed to drop duplicate task", zap.Int64("task_id", taskID), zap.Error(err))
	}
	return winner, true
}

// applyUpdate переносит изменяемые поля. completedAt ставится при переходе false->true
// и сбрасывается всегда, когда приходит false.
func applyUpdate(current model.Task, in model.TaskInput, now time.Time) model.Task {
	next := current
	next.Title = strings.TrimSpace(in.Title)
	next.Description = in.Description
	next.IsCompleted = in.IsCompleted

	switch {
	case in.IsCompleted && !current.IsCompleted:
		next.CompletedAt = &now
	case !in.IsCompleted:
		next.CompletedAt = nil
	}
	return next
}

func (s *TaskService) validate(in model.TaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return nil
}
