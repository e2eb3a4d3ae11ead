// Package storage реализует хранилище учётных записей на основе gorm.
// В продакшене используется PostgreSQL, в тестах SQLite в памяти.
// Каждый метод выполняется в отдельной сессии gorm, привязанной к контексту
// запроса, а составные изменения (пользователь + роли) идут одной транзакцией.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/magabrotheeeer/account-service/internal/models"
)

var (
	// ErrUserExists пользователь с таким email уже есть.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
)

const uniqueViolationCode = "23505"

// Storage инкапсулирует пул соединений gorm и реализует методы работы с пользователями.
type Storage struct {
	DB *gorm.DB
}

// New создаёт подключение к PostgreSQL и настраивает пул соединений.
func New(storageConnectionString string, log *slog.Logger) (*Storage, error) {
	const op = "storage.New"

	s, err := NewWithDialector(postgres.Open(storageConnectionString), log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewWithDialector открывает хранилище поверх произвольного диалекта gorm.
func NewWithDialector(dialector gorm.Dialector, log *slog.Logger) (*Storage, error) {
	const op = "storage.NewWithDialector"

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

func newGormLogger(log *slog.Logger) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	return logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// AutoMigrate создаёт таблицы по описанию записей. В продакшене схема
// создаётся SQL-миграциями, метод нужен для тестов на SQLite.
func (s *Storage) AutoMigrate() error {
	const op = "storage.AutoMigrate"
	if err := s.DB.AutoMigrate(&userRecord{}, &userRoleRecord{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SQLDB возвращает нижележащий *sql.DB, например для запуска миграций.
func (s *Storage) SQLDB() (*sql.DB, error) {
	return s.DB.DB()
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindByID возвращает пользователя по идентификатору.
func (s *Storage) FindByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.FindByID"
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	user, err := s.findOne(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// FindByEmail возвращает пользователя по email.
func (s *Storage) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.FindByEmail"
	user, err := s.findOne(ctx, "email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Storage) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		rec   userRecord
		roles []string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(query, arg).First(&rec).Error; err != nil {
			return err
		}
		return tx.Model(&userRoleRecord{}).
			Where("user_id = ?", rec.ID).
			Order("role").
			Pluck("role", &roles).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(roles), nil
}

// Insert сохраняет нового пользователя вместе с ролями.
//
// Нарушение уникальности email возвращается как ErrUserExists, в том числе
// при гонке двух одновременных регистраций.
func (s *Storage) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.Insert"

	rec := newUserRecord(user)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if roles := newRoleRecords(rec.ID, user.Roles); len(roles) > 0 {
			return tx.Create(&roles).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec.toModel(user.Roles), nil
}

// Update сохраняет скалярные поля пользователя и добавляет недостающие роли.
// Роли, которых нет в user.Roles, не удаляются.
func (s *Storage) Update(ctx context.Context, user *models.User) error {
	const op = "storage.Update"
	if _, err := uuid.Parse(user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	now := s.DB.NowFunc()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRecord{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"email":          user.Email,
				"password_hash":  user.PasswordHash,
				"email_verified": user.EmailVerified,
				"is_superuser":   user.IsSuperuser,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if roles := newRoleRecords(user.ID, user.Roles); len(roles) > 0 {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&roles).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	user.UpdatedAt = now
	return nil
}

// Delete удаляет пользователя и его роли. Возвращает false, если пользователя не было.
func (s *Storage) Delete(ctx context.Context, id string) (bool, error) {
	const op = "storage.Delete"
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&userRoleRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userRecord{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return deleted > 0, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
