// Команда createsuperuser создаёт учётную запись суперпользователя.
//
// Пароль берётся из флага -password или переменной окружения SUPERUSER_PASSWORD.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/account-service/internal/app/accounts"
	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

const passwordEnv = "SUPERUSER_PASSWORD"

func main() {
	email := flag.String("email", os.Getenv("SUPERUSER_EMAIL"), "email суперпользователя")
	password := flag.String("password", "", "пароль суперпользователя (по умолчанию из "+passwordEnv+")")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}
	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	if err := run(cfg, logger, *email, *password); err != nil {
		logger.Error("failed to create superuser", slog.String("email", *email), sl.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, email, password string) error {
	const op = "createsuperuser.run"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := accounts.OpenStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	registry, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer registry.Close()

	notifier, broker, err := accounts.NewNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer broker.Close()

	services := accounts.NewServices(cfg, logger, db, registry, notifier)
	user, err := services.Accounts.CreateSuperuser(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("superuser created", slog.String("user_id", user.ID), slog.String("email", user.Email))
	return nil
}
