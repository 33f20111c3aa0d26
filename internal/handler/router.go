package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/pkg/respond"
)

// NewRouter собирает все маршруты API
func NewRouter(auth *AuthHandler, tasks *TaskHandler, verifier TokenVerifier, store repo.Pinger, logger *zap.Logger) http.Handler {
	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))

	r.Get("/health", Health(store))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", auth.Register)
		r.Post("/login", auth.Login)
	})

	protect := func(next IdentityHandlerFunc) http.HandlerFunc {
		return RequireAuth(verifier, logger, next)
	}

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", protect(tasks.List))
		r.Post("/", protect(tasks.Create))
		r.Get("/{id}", protect(tasks.Get))
		r.Put("/{id}", protect(tasks.Update))
		r.Delete("/{id}", protect(tasks.Delete))
	})

	return r
}

// Health отвечает ok, если хранилище доступно
func Health(store repo.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			respond.Error(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
