// Package accounts собирает HTTP-сервис учётных записей: хранилище,
// миграции, реестр одноразовых токенов, уведомления и маршруты.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/notification"
	accountsservice "github.com/magabrotheeeer/account-service/internal/services/accounts"
	"github.com/magabrotheeeer/account-service/internal/services/verification"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	broker *Broker
}

// Broker соединение с RabbitMQ, через которое публикуются уведомления.
type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Close закрывает канал и соединение.
func (b *Broker) Close() error {
	if b == nil {
		return nil
	}
	return errors.Join(b.ch.Close(), b.conn.Close())
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.accounts.New"

	db, err := OpenStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifier, broker, err := NewNotifier(cfg, logger)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	services := NewServices(cfg, logger, db, cacheRedis, notifier)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, map[string]health.Pinger{
		"postgres": db,
		"redis":    cacheRedis,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		broker: broker,
	}, nil
}

// OpenStorage подключается к PostgreSQL и применяет миграции.
func OpenStorage(cfg *config.Config, logger *slog.Logger) (*storage.Storage, error) {
	const op = "app.accounts.OpenStorage"

	db, err := storage.New(cfg.StorageConnectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sqlDB, err := db.SQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(sqlDB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// NewNotifier выбирает способ доставки уведомлений. При выключенной отправке
// возвращает LogNotifier и nil вместо Broker.
func NewNotifier(cfg *config.Config, logger *slog.Logger) (notification.Notifier, *Broker, error) {
	const op = "app.accounts.NewNotifier"

	if !cfg.Notifications.Enabled {
		logger.Warn("notification delivery disabled, emails will only be logged")
		return notification.NewLogNotifier(logger), nil, nil
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return notification.NewPublisher(ch), &Broker{conn: conn, ch: ch}, nil
}

// NewServices собирает сервисы поверх хранилища, реестра токенов и уведомлений.
func NewServices(
	cfg *config.Config,
	logger *slog.Logger,
	users accountsservice.UserRepository,
	registry verification.TokenRegistry,
	notifier notification.Notifier,
) Services {
	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.Issuer)
	hasher := password.NewHasher(cfg.BcryptCost)

	return Services{
		Accounts: accountsservice.NewAccountService(logger, users, hasher, maker, notifier, accountsservice.Config{
			SessionTTL:     cfg.TokenTTL,
			EmailVerifyTTL: cfg.EmailVerifyTTL,
		}),
		Verification: verification.NewVerificationService(logger, users, hasher, maker, registry, notifier, verification.Config{
			EmailVerifyTTL:   cfg.EmailVerifyTTL,
			PasswordResetTTL: cfg.PasswordResetTTL,
		}),
	}
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.broker.Close(); err != nil {
		a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis client", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
