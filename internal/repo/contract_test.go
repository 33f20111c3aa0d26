package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
	"github.com/BuzzLyutic/secure-task-manager/internal/testutil"
)

// testStoreContract прогоняет одинаковые проверки для любой реализации хранилища
func testStoreContract(t *testing.T, users repo.UserRepository, tasks repo.TaskRepository) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	alice := testutil.SeedUser(t, users, "alice")
	bob := testutil.SeedUser(t, users, "bob")

	t.Run("user create and lookup", func(t *testing.T) {
		assert.NotZero(t, alice.ID)
		assert.False(t, alice.CreatedAt.IsZero())

		got, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.NotEmpty(t, got.PasswordHash)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := users.Create(ctx, model.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, repo.ErrorUsernameTaken)
		assert.ErrorIs(t, err, repo.ErrorConflict)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Create(ctx, model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, repo.ErrorEmailTaken)
	})

	t.Run("concurrent duplicate registration", func(t *testing.T) {
		const goroutines = 8
		var wg sync.WaitGroup
		errs := make([]error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, errs[idx] = users.Create(ctx, model.User{Username: "racer", Email: "racer@example.com", PasswordHash: "x"})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, repo.ErrorConflict)
			}
		}
		assert.Equal(t, 1, succeeded, "exactly one registration should win")
	})

	var created model.Task
	t.Run("task create and get", func(t *testing.T) {
		var err error
		created, err = tasks.Create(ctx, model.Task{UserID: alice.ID, Title: "Buy milk", CreatedAt: base})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, alice.ID, created.UserID)
		assert.False(t, created.IsCompleted)
		assert.Nil(t, created.CompletedAt)
		assert.True(t, base.Equal(created.CreatedAt))
		assert.Equal(t, time.UTC, created.CreatedAt.Location())

		got, err := tasks.Get(ctx, alice.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", got.Title)
		assert.Equal(t, "", got.Description)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		_, err := tasks.Get(ctx, bob.ID, created.ID)
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		_, err = tasks.Update(ctx, model.Task{ID: created.ID, UserID: bob.ID, Title: "hijack"})
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		err = tasks.Delete(ctx, bob.ID, created.ID)
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		list, err := tasks.List(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.NotNil(t, list)

		got, err := tasks.Get(ctx, alice.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", got.Title)
	})

	t.Run("update sets and clears completion", func(t *testing.T) {
		done := base.Add(time.Hour)
		updated, err := tasks.Update(ctx, model.Task{
			ID: created.ID, UserID: alice.ID, Title: "Buy oat milk", Description: "2 litres",
			IsCompleted: true, CompletedAt: &done,
		})
		require.NoError(t, err)
		assert.True(t, updated.IsCompleted)
		require.NotNil(t, updated.CompletedAt)
		assert.True(t, done.Equal(*updated.CompletedAt))
		assert.True(t, base.Equal(updated.CreatedAt), "created_at is immutable")

		updated, err = tasks.Update(ctx, model.Task{ID: created.ID, UserID: alice.ID, Title: "Buy oat milk"})
		require.NoError(t, err)
		assert.False(t, updated.IsCompleted)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("list newest first", func(t *testing.T) {
		for i, title := range []string{"T1", "T2", "T3"} {
			_, err := tasks.Create(ctx, model.Task{UserID: bob.ID, Title: title, CreatedAt: base.Add(time.Duration(i+1) * time.Minute)})
			require.NoError(t, err)
		}

		list, err := tasks.List(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"T3", "T2", "T1"}, []string{list[0].Title, list[1].Title, list[2].Title})
	})

	t.Run("idempotency keys are per user", func(t *testing.T) {
		require.NoError(t, tasks.SaveIdempotencyKey(ctx, alice.ID, "key-1", created.ID))
		require.NoError(t, tasks.SaveIdempotencyKey(ctx, alice.ID, "key-1", created.ID), "second save is a no-op")

		id, err := tasks.GetIdempotencyKey(ctx, alice.ID, "key-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, id)

		_, err = tasks.GetIdempotencyKey(ctx, bob.ID, "key-1")
		assert.ErrorIs(t, err, repo.ErrorNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, tasks.Delete(ctx, alice.ID, created.ID))

		_, err := tasks.Get(ctx, alice.ID, created.ID)
		assert.ErrorIs(t, err, repo.ErrorNotFound)

		_, err = tasks.GetIdempotencyKey(ctx, alice.ID, "key-1")
		assert.ErrorIs(t, err, repo.ErrorNotFound, "key goes away with its task")

		assert.ErrorIs(t, tasks.Delete(ctx, alice.ID, created.ID), repo.ErrorNotFound)
	})
}
