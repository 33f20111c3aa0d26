package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/internal/service"
	"github.com/BuzzLyutic/secure-task-manager/pkg/respond"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

// handleErrors переводит ошибки сервисов в HTTP статусы. Детали внутренних ошибок только в лог.
func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "task not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuthentication):
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
	default:
		logger.Error("internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid json: %v", err)
	}
	return nil
}
