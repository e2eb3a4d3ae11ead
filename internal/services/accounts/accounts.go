// Package accounts содержит бизнес-логику учётных записей: регистрацию,
// вход по паролю, проверку bearer-токена, удаление и назначение ролей.
//
// Ошибки сервиса оборачивают сентинелы из пакета common, детали хранилища
// остаются только в цепочке ошибок для логов.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/notification"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// TokenTypeBearer тип токена, который возвращает Login.
const TokenTypeBearer = "bearer"

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) (bool, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string) bool
}

// Config время жизни выпускаемых токенов.
type Config struct {
	SessionTTL     time.Duration
	EmailVerifyTTL time.Duration
}

// Token ответ на успешный вход.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccountService управляет жизненным циклом учётных записей.
type AccountService struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   jwt.Maker
	notifier notification.Notifier
	validate *validator.Validate
	cfg      Config
	log      *slog.Logger
}

// NewAccountService создает новый экземпляр AccountService.
func NewAccountService(
	log *slog.Logger,
	users UserRepository,
	hasher PasswordHasher,
	tokens jwt.Maker,
	notifier notification.Notifier,
	cfg Config,
) *AccountService {
	return &AccountService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		validate: validator.New(),
		cfg:      cfg,
		log:      log,
	}
}

// Register создаёт пользователя без подтверждённой почты и ролей и отправляет
// ему письмо со ссылкой подтверждения. Ошибка отправки письма не отменяет регистрацию.
func (s *AccountService) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "accounts.Register"
	user, err := s.create(ctx, email, rawPassword, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// CreateSuperuser создаёт пользователя с правами суперпользователя.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "accounts.CreateSuperuser"
	user, err := s.create(ctx, email, rawPassword, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *AccountService) create(ctx context.Context, email, rawPassword string, superuser bool) (*models.User, error) {
	if err := s.validateCredentials(email, rawPassword); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrConflict
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}

	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	user := models.NewUser(uuid.NewString(), email, hashed)
	if superuser {
		user.PromoteToSuperuser()
	}

	created, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}

	s.notifyVerification(ctx, created, models.KindNewAccount)
	return created, nil
}

func (s *AccountService) validateCredentials(email, rawPassword string) error {
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return fmt.Errorf("%w: malformed email", common.ErrInvalidInput)
	}
	if err := password.Validate(rawPassword); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	return nil
}

// notifyVerification выпускает токен подтверждения почты и отправляет письмо вида kind.
// Ошибки только логируются.
func (s *AccountService) notifyVerification(ctx context.Context, user *models.User, kind models.NotificationKind) {
	log := s.log.With(slog.String("op", "accounts.notifyVerification"), slog.String("user_id", user.ID))

	token, err := s.tokens.IssueForUser(jwt.PurposeEmailVerify, user.Email, user.ID, s.cfg.EmailVerifyTTL)
	if err != nil {
		log.Error("failed to issue email verification token", sl.Err(err))
		return
	}
	err = s.notifier.Notify(ctx, models.Notification{
		Recipient: user.Email,
		Kind:      kind,
		Token:     token,
	})
	if err != nil {
		log.Error("failed to send notification", slog.String("kind", string(kind)), sl.Err(err))
	}
}

// Login проверяет пароль и выпускает bearer-токен.
//
// Неизвестный email и неверный пароль дают одинаковую ErrUnauthorized,
// а для неизвестного email пароль всё равно проверяется против заглушки.
func (s *AccountService) Login(ctx context.Context, email, rawPassword string) (*Token, error) {
	const op = "accounts.Login"

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.hasher.VerifyDummy(rawPassword)
			return nil, fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	if !s.hasher.Verify(rawPassword, user.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(jwt.PurposeSession, user.ID, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	return &Token{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.cfg.SessionTTL / time.Second),
	}, nil
}

// Authenticate проверяет bearer-токен и возвращает текущего пользователя.
// Если пользователь удалён после выпуска токена, возвращается ErrUnauthorized.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "accounts.Authenticate"

	claims, err := s.tokens.Verify(token, jwt.PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrUnauthorized, err)
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	return user, nil
}

// Delete удаляет пользователя targetID. Разрешено самому пользователю и суперпользователю.
func (s *AccountService) Delete(ctx context.Context, requester *models.User, targetID string) (bool, error) {
	const op = "accounts.Delete"

	if requester == nil {
		return false, fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
	}
	if requester.ID != targetID && !requester.IsSuperuser {
		return false, fmt.Errorf("%s: %w", op, common.ErrForbidden)
	}

	deleted, err := s.users.Delete(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	if !deleted {
		return false, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	s.log.Info("user deleted",
		slog.String("op", op),
		slog.String("user_id", targetID),
		slog.String("requester_id", requester.ID),
	)
	return true, nil
}

// AssignRoles добавляет роли пользователю. Уже выданные роли пропускаются,
// поэтому повторный вызов с теми же ролями ничего не меняет.
func (s *AccountService) AssignRoles(ctx context.Context, targetID string, roles []string) (*models.User, error) {
	const op = "accounts.AssignRoles"

	if len(roles) == 0 {
		return nil, fmt.Errorf("%s: %w: no roles", op, common.ErrInvalidInput)
	}
	for _, r := range roles {
		if strings.TrimSpace(r) == "" {
			return nil, fmt.Errorf("%s: %w: blank role", op, common.ErrInvalidInput)
		}
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}

	if !user.AddRoles(roles...) {
		return user, nil
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
	}
	return user, nil
}
