// Package cache реализует реестр использованных одноразовых токенов поверх Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/account-service/internal/config"
)

const usedTokenPrefix = "used_token:"

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer создаёт клиента Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.PasswordRedis,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// MarkUsed атомарно помечает токен с идентификатором jti использованным.
//
// Возвращает true, если токен помечен этим вызовом, и false, если он уже был
// использован раньше. Пометка живёт ttl, после чего токен всё равно просрочен.
func (c *Cache) MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	const op = "cache.MarkUsed"
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := c.Db.SetNX(ctx, usedTokenPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// IsUsed сообщает, был ли токен уже использован.
func (c *Cache) IsUsed(ctx context.Context, jti string) (bool, error) {
	const op = "cache.IsUsed"
	n, err := c.Db.Exists(ctx, usedTokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// Release снимает пометку с токена jti. Вызывается, когда операция,
// погасившая токен, не смогла сохранить результат.
func (c *Cache) Release(ctx context.Context, jti string) error {
	const op = "cache.Release"
	if err := c.Db.Del(ctx, usedTokenPrefix+jti).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}
