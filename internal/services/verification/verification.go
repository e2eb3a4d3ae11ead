// Package verification реализует подтверждение почты и сброс пароля по
// одноразовым подписанным токенам.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/notification"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// UserRepository часть хранилища пользователей, нужная для подтверждения почты и сброса пароля.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// PasswordHasher хеширует новый пароль.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// TokenRegistry помечает одноразовые токены использованными.
type TokenRegistry interface {
	MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsUsed(ctx context.Context, jti string) (bool, error)
	Release(ctx context.Context, jti string) error
}

// Config время жизни токенов подтверждения почты и сброса пароля.
type Config struct {
	EmailVerifyTTL   time.Duration
	PasswordResetTTL time.Duration
}

// VerificationService выпускает и погашает токены подтверждения почты и сброса пароля.
type VerificationService struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   jwt.Maker
	used     TokenRegistry
	notifier notification.Notifier
	validate *validator.Validate
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewVerificationService создает новый экземпляр VerificationService.
func NewVerificationService(
	log *slog.Logger,
	users UserRepository,
	hasher PasswordHasher,
	tokens jwt.Maker,
	used TokenRegistry,
	notifier notification.Notifier,
	cfg Config,
) *VerificationService {
	return &VerificationService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		used:     used,
		notifier: notifier,
		validate: validator.New(),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// RequestPasswordReset отправляет письмо со ссылкой сброса пароля.
//
// Для корректного email всегда возвращает nil: отсутствие пользователя и
// внутренние ошибки не видны вызывающему.
func (s *VerificationService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "verification.RequestPasswordReset"
	log := s.log.With(slog.String("op", op))

	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%s: %w: malformed email", op, common.ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			log.Error("failed to look up user", sl.Err(err))
		}
		return nil
	}

	token, err := s.tokens.IssueForUser(jwt.PurposePasswordReset, user.Email, user.ID, s.cfg.PasswordResetTTL)
	if err != nil {
		log.Error("failed to issue password reset token", sl.Err(err))
		return nil
	}
	err = s.notifier.Notify(ctx, models.Notification{
		Recipient: user.Email,
		Kind:      models.KindPasswordReset,
		Token:     token,
	})
	if err != nil {
		log.Error("failed to send password reset notification", slog.String("user_id", user.ID), sl.Err(err))
	}
	return nil
}

// ResetPassword меняет пароль по токену сброса. Токен должен быть выпущен
// для email и той же учётной записи и ещё не использован. Если новый пароль
// не удалось сохранить, токен остаётся действительным.
func (s *VerificationService) ResetPassword(ctx context.Context, token, email, newPassword string) error {
	const op = "verification.ResetPassword"

	claims, err := s.tokens.Verify(token, jwt.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrInvalidToken, err)
	}
	if claims.Subject != email {
		return fmt.Errorf("%s: %w: subject mismatch", op, common.ErrInvalidToken)
	}
	if err := password.Validate(newPassword); err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrInvalidInput, err)
	}
	if err := s.checkUnused(ctx, claims); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.findOwner(ctx, claims)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	if err := s.consume(ctx, claims); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user.SetPasswordHash(hashed)
	if err := s.users.Update(ctx, user); err != nil {
		s.release(ctx, op, claims)
		return fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}

	s.log.Info("password reset", slog.String("op", op), slog.String("user_id", user.ID))
	return nil
}

// RequestEmailVerification повторно отправляет письмо подтверждения почты
// аутентифицированному пользователю. Для уже подтверждённой почты ничего не делает.
func (s *VerificationService) RequestEmailVerification(ctx context.Context, user *models.User) error {
	const op = "verification.RequestEmailVerification"

	if user == nil {
		return fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
	}
	if user.EmailVerified {
		return nil
	}

	token, err := s.tokens.IssueForUser(jwt.PurposeEmailVerify, user.Email, user.ID, s.cfg.EmailVerifyTTL)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	err = s.notifier.Notify(ctx, models.Notification{
		Recipient: user.Email,
		Kind:      models.KindEmailVerification,
		Token:     token,
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	return nil
}

// VerifyEmail подтверждает почту по токену. Повторное подтверждение уже
// подтверждённой почты новым токеном не считается ошибкой.
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	const op = "verification.VerifyEmail"

	claims, err := s.tokens.Verify(token, jwt.PurposeEmailVerify)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInvalidToken, err)
	}
	if err := s.checkUnused(ctx, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.findOwner(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.consume(ctx, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.EmailVerified {
		return user, nil
	}

	user.MarkEmailVerified()
	if err := s.users.Update(ctx, user); err != nil {
		s.release(ctx, op, claims)
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	return user, nil
}

// findOwner ищет пользователя, для которого выпущен токен. Пользователь с тем же
// email, но другим идентификатором считается чужим.
func (s *VerificationService) findOwner(ctx context.Context, claims *jwt.CustomClaims) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user gone", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if claims.UserID != user.ID {
		return nil, fmt.Errorf("%w: token issued for another account", common.ErrInvalidToken)
	}
	return user, nil
}

// checkUnused отклоняет уже погашенный токен до обращения к хранилищу.
func (s *VerificationService) checkUnused(ctx context.Context, claims *jwt.CustomClaims) error {
	if claims.ID == "" {
		return fmt.Errorf("%w: missing jti", common.ErrInvalidToken)
	}
	used, err := s.used.IsUsed(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if used {
		return fmt.Errorf("%w: token already used", common.ErrInvalidToken)
	}
	return nil
}

// consume помечает токен использованным. Из одновременных вызовов успешен только один,
// остальные получают ErrInvalidToken.
func (s *VerificationService) consume(ctx context.Context, claims *jwt.CustomClaims) error {
	first, err := s.used.MarkUsed(ctx, claims.ID, claims.Remaining(s.now()))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if !first {
		return fmt.Errorf("%w: token already used", common.ErrInvalidToken)
	}
	return nil
}

// release возвращает токену силу после неудачного сохранения.
func (s *VerificationService) release(ctx context.Context, op string, claims *jwt.CustomClaims) {
	if err := s.used.Release(ctx, claims.ID); err != nil {
		s.log.Error("failed to release one-time token",
			slog.String("op", op),
			slog.String("jti", claims.ID),
			sl.Err(err),
		)
	}
}
