// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// Hasher.Hash создает bcrypt-хеш пароля для безопасного хранения.
// Hasher.Verify сравнивает bcrypt-хеш с введённым паролем и никогда не паникует
// на битом хеше.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength минимальная длина пароля в байтах.
	MinLength = 8
	// MaxLength предельная длина пароля в байтах, которую принимает bcrypt.
	MaxLength = 72
)

var (
	// ErrTooShort пароль короче MinLength байт.
	ErrTooShort = errors.New("password shorter than 8 bytes")
	// ErrTooLong пароль длиннее MaxLength байт.
	ErrTooLong = errors.New("password exceeds 72 bytes")
)

// Validate проверяет длину пароля перед хешированием.
func Validate(password string) error {
	switch {
	case len(password) < MinLength:
		return ErrTooShort
	case len(password) > MaxLength:
		return ErrTooLong
	}
	return nil
}

// Hasher хеширует и проверяет пароли с заданной стоимостью bcrypt.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона bcrypt
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Хеш-заглушка считается с той же стоимостью, что и настоящие,
	// иначе время ответа на неизвестный email будет отличаться.
	dummy, err := bcrypt.GenerateFromPassword([]byte("account-service-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("password: generate dummy hash: %v", err))
	}
	return &Hasher{cost: cost, dummyHash: dummy}
}

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	if len(password) > MaxLength {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// Verify сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает false при несовпадении и при некорректном хэше.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy тратит столько же времени, сколько Verify, и всегда возвращает false.
// Используется, когда пользователя не существует.
func (h *Hasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
	return false
}
