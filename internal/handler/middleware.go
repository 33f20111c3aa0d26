package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/pkg/respond"
)

// TokenVerifier проверяет токен сессии и возвращает личность пользователя
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// IdentityHandlerFunc - обработчик защищенного маршрута, личность передается явно
type IdentityHandlerFunc func(w http.ResponseWriter, r *http.Request, id model.Identity)

// RequireAuth проверяет Bearer токен и вызывает next с полученной личностью.
// Любая ошибка проверки дает одинаковый ответ 401.
func RequireAuth(verifier TokenVerifier, logger *zap.Logger, next IdentityHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("token rejected", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
			respond.Error(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		next(w, r, id)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestLogger пишет одну строку в zap на каждый запрос
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer ловит панику обработчика, пишет ее в лог и отвечает 500 без деталей
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Any("panic", rvr),
					zap.Stack("stack"),
				)
				respond.Error(w, r, http.StatusInternalServerError, "internal error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
