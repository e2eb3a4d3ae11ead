package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_UserLifecycle(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	user := newTestUser("pg@example.com")
	user.AddRoles("viewer")
	_, err := s.Insert(ctx, user)
	require.NoError(t, err)

	_, err = s.Insert(ctx, newTestUser("pg@example.com"))
	assert.ErrorIs(t, err, ErrUserExists)

	user.MarkEmailVerified()
	user.AddRoles("editor")
	require.NoError(t, s.Update(ctx, user))
	require.NoError(t, s.Update(ctx, user))

	got, err := s.FindByEmail(ctx, "pg@example.com")
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, []string{"editor", "viewer"}, got.Roles)

	_, err = s.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	deleted, err := s.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPostgres_ConcurrentInsert(t *testing.T) {
	s := setupPostgresStorage(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, newTestUser("same@example.com"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrUserExists) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}
