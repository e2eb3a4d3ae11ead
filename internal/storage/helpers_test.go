package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/sqlite"

	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// setupSQLiteStorage создаёт изолированную базу SQLite в памяти со схемой из AutoMigrate.
func setupSQLiteStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	s, err := NewWithDialector(sqlite.Open(dsn), nil)
	require.NoError(t, err)

	sqlDB, err := s.SQLDB()
	require.NoError(t, err)
	// Одно соединение: база в памяти живёт, пока открыто хотя бы одно.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// setupPostgresStorage поднимает PostgreSQL в контейнере и применяет SQL-миграции.
func setupPostgresStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var s *Storage
	for range 10 {
		s, err = New(dsn, nil)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	t.Cleanup(func() { _ = s.Close() })

	sqlDB, err := s.SQLDB()
	require.NoError(t, err)
	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(sqlDB, migrationsPath))

	return s
}

func newTestUser(email string) *models.User {
	return models.NewUser(uuid.NewString(), email, "$2a$04$hashedpasswordplaceholder")
}
