package client

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/secure-task-manager/internal/config"
	"github.com/BuzzLyutic/secure-task-manager/internal/handler"
	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/internal/service"
	"github.com/BuzzLyutic/secure-task-manager/internal/testutil"
)

func setupE2EServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.SetupSQLite(t)
	logger := zap.NewNop()

	cfg := &config.Config{
		JWTSecret:  "client-test-secret-client-test-secret",
		TokenTTL:   config.DefaultTokenTTL,
		BcryptCost: bcrypt.MinCost,
	}

	taskRepo := repo.NewSQLiteTaskRepo(db)
	authService := service.NewAuthService(repo.NewSQLiteUserRepo(db), cfg, logger)

	server := httptest.NewServer(handler.NewRouter(
		handler.NewAuthHandler(authService, logger),
		handler.NewTaskHandler(service.NewTaskService(taskRepo, logger), logger),
		authService,
		taskRepo,
		logger,
	))
	t.Cleanup(server.Close)
	return server
}

func TestE2E_FullWorkflow(t *testing.T) {
	server := setupE2EServer(t)
	ctx := context.Background()
	c := New(server.URL, server.Client())

	// 1. Register and login
	userID, err := c.Register(ctx, "alice", "alice@example.com", "pa55word")
	require.NoError(t, err)
	require.NotZero(t, userID)

	sess, err := c.Login(ctx, "alice", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, model.Identity{UserID: userID, Username: "alice", Email: "alice@example.com"}, sess.User)

	// 2. Create task
	created, err := c.CreateTask(ctx, "E2E Test Task", "")
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.False(t, created.IsCompleted)

	// 3. Get task
	fetched, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	// 4. Complete task
	updated, err := c.UpdateTask(ctx, created.ID, "Updated E2E Task", "notes", true)
	require.NoError(t, err)
	assert.Equal(t, "Updated E2E Task", updated.Title)
	require.NotNil(t, updated.CompletedAt)

	// 5. List tasks
	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	// 6. Delete task and verify deletion
	require.NoError(t, c.DeleteTask(ctx, created.ID))
	_, err = c.GetTask(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestE2E_Errors(t *testing.T) {
	server := setupE2EServer(t)
	ctx := context.Background()
	c := New(server.URL, server.Client())

	_, err := c.Register(ctx, "alice", "alice@example.com", "pa55word")
	require.NoError(t, err)

	t.Run("duplicate registration", func(t *testing.T) {
		_, err := c.Register(ctx, "alice", "other@example.com", "pa55word")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "username already exists")
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, err := c.Login(ctx, "alice", "wrong")
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("tasks without token", func(t *testing.T) {
		_, err := New(server.URL, server.Client()).ListTasks(ctx)
		assert.True(t, IsUnauthorized(err))
	})
}

func TestSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewSessionStore(path)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	sess := Session{Token: "tok", User: model.Identity{UserID: 3, Username: "alice", Email: "alice@example.com"}}
	require.NoError(t, store.Save(sess))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// новый экземпляр читает то же, что и после перезапуска
	loaded, ok, err := NewSessionStore(path).Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sess, loaded)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")

	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}
