package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func day(s string) *time.Time {
	v, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &v
}

func newUser(email string) *models.User {
	return &models.User{
		ID:             uuid.NewString(),
		Username:       "user",
		Email:          email,
		Contact:        "0812",
		Password:       "hash",
		Role:           models.RoleMember,
		ProfilePicture: models.DefaultProfilePicture,
	}
}

func uniqueEmail(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8] + "@example.com"
}

// runUserStoreContract dijalankan terhadap setiap implementasi UserStore.
func runUserStoreContract(t *testing.T, users UserStore) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		u := newUser(uniqueEmail("find"))
		require.NoError(t, users.CreateUser(ctx, u))
		assert.False(t, u.CreatedAt.IsZero())

		byID, err := users.FindUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, "hash", byID.Password)
		assert.Nil(t, byID.RefreshToken)

		byEmail, err := users.FindUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		_, err = users.FindUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = users.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		email := uniqueEmail("dup")
		require.NoError(t, users.CreateUser(ctx, newUser(email)))
		assert.ErrorIs(t, users.CreateUser(ctx, newUser(email)), ErrDuplicate)
	})

	t.Run("partial update", func(t *testing.T) {
		u := newUser(uniqueEmail("update"))
		require.NoError(t, users.CreateUser(ctx, u))

		updated, err := users.UpdateUser(ctx, u.ID, models.UserPatch{Username: strPtr("renamed")})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Username)
		assert.Equal(t, u.Email, updated.Email)
		assert.Equal(t, "0812", updated.Contact)

		other := newUser(uniqueEmail("other"))
		require.NoError(t, users.CreateUser(ctx, other))
		_, err = users.UpdateUser(ctx, u.ID, models.UserPatch{Email: strPtr(other.Email)})
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = users.UpdateUser(ctx, uuid.NewString(), models.UserPatch{Username: strPtr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("refresh token", func(t *testing.T) {
		u := newUser(uniqueEmail("refresh"))
		require.NoError(t, users.CreateUser(ctx, u))

		stored, err := users.FindRefreshToken(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)

		require.NoError(t, users.SetRefreshToken(ctx, u.ID, strPtr("tok-1")))
		stored, err = users.FindRefreshToken(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "tok-1", *stored)

		require.NoError(t, users.SetRefreshToken(ctx, u.ID, nil))
		stored, err = users.FindRefreshToken(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)

		assert.ErrorIs(t, users.SetRefreshToken(ctx, uuid.NewString(), nil), ErrNotFound)
		_, err = users.FindRefreshToken(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		u := newUser(uniqueEmail("delete"))
		require.NoError(t, users.CreateUser(ctx, u))
		require.NoError(t, users.DeleteUser(ctx, u.ID))

		_, err := users.FindUserByID(ctx, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, users.DeleteUser(ctx, u.ID), ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		list, err := users.ListUsers(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})
}

// runTaskStoreContract dijalankan terhadap setiap implementasi TaskStore.
func runTaskStoreContract(t *testing.T, users UserStore, tasks TaskStore) {
	ctx := context.Background()

	owner := newUser(uniqueEmail("owner"))
	require.NoError(t, users.CreateUser(ctx, owner))
	intruder := newUser(uniqueEmail("intruder"))
	require.NoError(t, users.CreateUser(ctx, intruder))

	newTask := func(name string) *models.Task {
		task := &models.Task{
			ID:       uuid.NewString(),
			Name:     name,
			Stage:    models.StageBacklog,
			Priority: models.PriorityMedium,
			Deadline: day("2030-01-01"),
			UserID:   owner.ID,
		}
		require.NoError(t, tasks.CreateTask(ctx, task))
		return task
	}

	t.Run("create and scoped find", func(t *testing.T) {
		task := newTask("Write report")

		got, err := tasks.FindTask(ctx, task.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, "Write report", got.Name)
		assert.Equal(t, models.StageBacklog, got.Stage)
		require.NotNil(t, got.Deadline)
		assert.True(t, got.Deadline.Equal(*day("2030-01-01")))

		_, err = tasks.FindTask(ctx, task.ID, intruder.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("name unique per owner", func(t *testing.T) {
		newTask("Same name")
		dup := &models.Task{ID: uuid.NewString(), Name: "Same name", UserID: owner.ID}
		assert.ErrorIs(t, tasks.CreateTask(ctx, dup), ErrDuplicate)

		foreign := &models.Task{ID: uuid.NewString(), Name: "Same name", UserID: intruder.ID}
		assert.NoError(t, tasks.CreateTask(ctx, foreign))
	})

	t.Run("shift stage stays on the board", func(t *testing.T) {
		task := newTask("Shift me")

		_, err := tasks.ShiftStage(ctx, task.ID, owner.ID, -1)
		assert.ErrorIs(t, err, ErrStageOutOfRange)

		for want := models.StageTodo; want <= models.StageDone; want++ {
			got, err := tasks.ShiftStage(ctx, task.ID, owner.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got.Stage)
		}

		_, err = tasks.ShiftStage(ctx, task.ID, owner.ID, 1)
		assert.ErrorIs(t, err, ErrStageOutOfRange)
		got, err := tasks.FindTask(ctx, task.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StageDone, got.Stage)

		_, err = tasks.ShiftStage(ctx, task.ID, intruder.ID, -1)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tasks.ShiftStage(ctx, uuid.NewString(), owner.ID, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent shifts do not lose updates", func(t *testing.T) {
		task := newTask("Race me")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := tasks.ShiftStage(ctx, task.ID, owner.ID, 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, succeeded)
		got, err := tasks.FindTask(ctx, task.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StageDone, got.Stage)
	})

	t.Run("set stage", func(t *testing.T) {
		task := newTask("Complete me")
		got, err := tasks.SetStage(ctx, task.ID, owner.ID, models.StageDone)
		require.NoError(t, err)
		assert.Equal(t, models.StageDone, got.Stage)

		_, err = tasks.SetStage(ctx, task.ID, intruder.ID, models.StageDone)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("partial update", func(t *testing.T) {
		task := newTask("Patch me")
		high := models.PriorityHigh

		got, err := tasks.UpdateTask(ctx, task.ID, owner.ID, models.TaskPatch{Priority: &high})
		require.NoError(t, err)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		assert.Equal(t, "Patch me", got.Name)
		require.NotNil(t, got.Deadline)
		assert.True(t, got.Deadline.Equal(*day("2030-01-01")))

		_, err = tasks.UpdateTask(ctx, task.ID, owner.ID, models.TaskPatch{Name: strPtr("Write report")})
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = tasks.UpdateTask(ctx, task.ID, intruder.ID, models.TaskPatch{Name: strPtr("stolen")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list with deadline filter", func(t *testing.T) {
		later := &models.Task{ID: uuid.NewString(), Name: "Later", Deadline: day("2031-06-01"), UserID: owner.ID}
		require.NoError(t, tasks.CreateTask(ctx, later))

		all, err := tasks.ListTasks(ctx, owner.ID, models.TaskFilter{})
		require.NoError(t, err)
		for _, task := range all {
			assert.Equal(t, owner.ID, task.UserID)
		}

		filtered, err := tasks.ListTasks(ctx, owner.ID, models.TaskFilter{
			DeadlineFrom: day("2031-01-01"),
			DeadlineTo:   day("2031-12-31"),
		})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Later", filtered[0].Name)

		stranger := newUser(uniqueEmail("stranger"))
		require.NoError(t, users.CreateUser(ctx, stranger))
		empty, err := tasks.ListTasks(ctx, stranger.ID, models.TaskFilter{})
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		task := newTask("Delete me")
		assert.ErrorIs(t, tasks.DeleteTask(ctx, task.ID, intruder.ID), ErrNotFound)
		require.NoError(t, tasks.DeleteTask(ctx, task.ID, owner.ID))
		assert.ErrorIs(t, tasks.DeleteTask(ctx, task.ID, owner.ID), ErrNotFound)

		require.NoError(t, tasks.DeleteTasksByOwner(ctx, intruder.ID))
		left, err := tasks.ListTasks(ctx, intruder.ID, models.TaskFilter{})
		require.NoError(t, err)
		assert.Empty(t, left)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	t.Run("users", func(t *testing.T) { runUserStoreContract(t, store) })
	t.Run("tasks", func(t *testing.T) { runTaskStoreContract(t, store, store) })
}

func TestStageBounds(t *testing.T) {
	lo, hi := stageBounds(1)
	assert.Equal(t, models.StageBacklog, lo)
	assert.Equal(t, models.StageOngoing, hi)

	lo, hi = stageBounds(-1)
	assert.Equal(t, models.StageTodo, lo)
	assert.Equal(t, models.StageDone, hi)
}
