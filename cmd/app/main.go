package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/secure-task-manager/internal/config"
	"github.com/BuzzLyutic/secure-task-manager/internal/handler"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/internal/service"
)

type store struct {
	users repo.UserRepository
	tasks interface {
		repo.TaskRepository
		repo.Pinger
	}
	close func()
}

func main() {
	// Загрузка конфигурации. Без JWT_SECRET сервер не стартует.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Подключаем БД
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()
	logger.Info("Successfully connected to the store!", zap.String("driver", cfg.StoreDriver))

	authService := service.NewAuthService(st.users, cfg, logger)
	taskService := service.NewTaskService(st.tasks, logger)

	r := handler.NewRouter(
		handler.NewAuthHandler(authService, logger),
		handler.NewTaskHandler(taskService, logger),
		authService,
		st.tasks,
		logger,
	)

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
		return
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем новое соединение к БД
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil { // Пытаемся пингануть БД
			pool.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		if err := repo.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			users: repo.NewUserRepo(pool),
			tasks: repo.NewTaskRepo(pool),
			close: pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := repo.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &store{
			users: repo.NewSQLiteUserRepo(db),
			tasks: repo.NewSQLiteTaskRepo(db),
			close: func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
