package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/service"
	"github.com/BuzzLyutic/secure-task-manager/pkg/respond"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthHandler struct {
	service *service.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(srv *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, registerResponse{
		Message: "user registered successfully",
		UserID:  userID,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrAuthentication) {
		respond.Error(w, r, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, loginResponse{
		Token:    res.Token,
		UserID:   res.User.UserID,
		Username: res.User.Username,
		Email:    res.User.Email,
	})
}
