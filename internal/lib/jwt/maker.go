// Package jwt реализует выпуск и проверку подписанных токенов, привязанных к цели.
//
// Maker определяет интерфейс для выпуска токена под конкретную цель (сессия,
// подтверждение почты, сброс пароля) и для его проверки с ожидаемой целью.
// MakerImpl конкретная реализация на HS256 с секретным ключом, который
// передаётся при создании и больше не меняется.
package jwt

import (
	"errors"
	"time"
)

// Purpose цель, для которой выпущен токен. Токены разных целей не взаимозаменяемы.
type Purpose string

const (
	// PurposeSession bearer-токен, выдаваемый при входе.
	PurposeSession Purpose = "session"
	// PurposeEmailVerify токен подтверждения почты.
	PurposeEmailVerify Purpose = "email-verify"
	// PurposePasswordReset токен сброса пароля.
	PurposePasswordReset Purpose = "password-reset"
)

// ErrInvalidToken возвращается при любой ошибке проверки токена.
// Конкретная причина доступна через цепочку ошибок и нужна только для логов.
var ErrInvalidToken = errors.New("invalid token")

// Maker описывает интерфейс для выпуска и проверки токенов.
type Maker interface {
	// Issue выпускает токен для subject с целью purpose и временем жизни ttl.
	Issue(purpose Purpose, subject string, ttl time.Duration) (string, error)
	// IssueForUser как Issue, но дополнительно привязывает токен к учётной записи userID.
	IssueForUser(purpose Purpose, subject, userID string, ttl time.Duration) (string, error)
	// Verify проверяет подпись, срок и цель токена и возвращает его claims.
	Verify(tokenStr string, expected Purpose) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа.
type MakerImpl struct {
	secretKey []byte // Секретный ключ для подписи токенов.
	issuer    string // Значение iss во всех выпускаемых токенах.
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и издателя.
func NewJWTMaker(secretKey, issuer string) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
}
