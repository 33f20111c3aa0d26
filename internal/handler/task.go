package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/internal/service"
	"github.com/BuzzLyutic/secure-task-manager/pkg/respond"
)

// createTaskRequest принимает только title и description, остальное игнорируется
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request, id model.Identity) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), id, model.TaskInput{
		Title:       req.Title,
		Description: req.Description,
	}, idempKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request, id model.Identity) {
	taskID, err := taskIDParam(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Get(r.Context(), id, taskID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request, id model.Identity) {
	tasks, err := h.service.List(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request, id model.Identity) {
	taskID, err := taskIDParam(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.Update(r.Context(), id, taskID, model.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request, id model.Identity) {
	taskID, err := taskIDParam(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, taskID); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	handleErrors(w, r, h.logger, err)
}

// taskIDParam - нечисловой id считается несуществующей задачей
func taskIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, repo.ErrorNotFound
	}
	return id, nil
}
