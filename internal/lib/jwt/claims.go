package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims описывает данные, хранящиеся в токене.
type CustomClaims struct {
	Purpose              Purpose `json:"purpose"`       // Цель токена
	UserID               string  `json:"uid,omitempty"` // Учётная запись, для которой выпущен токен
	jwt.RegisteredClaims         // sub, iss, iat, exp, jti
}

// Issue создает токен для subject с целью purpose, подписывая его секретным ключом.
//
// У каждого токена свой jti, по которому одноразовые токены помечаются использованными.
func (j *MakerImpl) Issue(purpose Purpose, subject string, ttl time.Duration) (string, error) {
	return j.IssueForUser(purpose, subject, "", ttl)
}

// IssueForUser выпускает токен для subject с claim uid, равным userID.
// Пустой userID не записывается в токен.
func (j *MakerImpl) IssueForUser(purpose Purpose, subject, userID string, ttl time.Duration) (string, error) {
	const op = "jwt.Issue"
	if subject == "" {
		return "", fmt.Errorf("%s: empty subject", op)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%s: non-positive ttl %s", op, ttl)
	}

	now := j.now()
	claims := CustomClaims{
		Purpose: purpose,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Verify парсит токен, проверяет подпись, алгоритм, срок действия и цель.
//
// Любая ошибка оборачивает ErrInvalidToken.
func (j *MakerImpl) Verify(tokenStr string, expected Purpose) (*CustomClaims, error) {
	const op = "jwt.Verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if claims.Purpose != expected {
		return nil, fmt.Errorf("%s: %w: purpose %q, want %q", op, ErrInvalidToken, claims.Purpose, expected)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w: empty subject", op, ErrInvalidToken)
	}
	return claims, nil
}

// Remaining возвращает оставшееся время жизни токена относительно now.
func (c *CustomClaims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
