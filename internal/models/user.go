// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля, флаги и набор ролей.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import (
	"slices"
	"strings"
	"time"
)

// User представляет зарегистрированного пользователя системы.
//
// Поля меняются только через методы ниже, чтобы все переходы состояния
// были перечислимы.
type User struct {
	ID            string    `json:"id"`             // Уникальный идентификатор пользователя (UUID)
	Email         string    `json:"email"`          // Электронная почта, уникальна
	PasswordHash  string    `json:"-"`              // Хэш пароля пользователя
	EmailVerified bool      `json:"email_verified"` // Подтверждена ли почта
	IsSuperuser   bool      `json:"is_superuser"`   // Суперпользователь
	Roles         []string  `json:"roles"`          // Отсортированный набор ролей без повторов
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUser создаёт пользователя без подтверждённой почты, без ролей и прав суперпользователя.
func NewUser(id, email, passwordHash string) *User {
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{},
	}
}

// MarkEmailVerified отмечает почту как подтверждённую.
func (u *User) MarkEmailVerified() {
	u.EmailVerified = true
}

// SetPasswordHash заменяет хэш пароля.
func (u *User) SetPasswordHash(hash string) {
	u.PasswordHash = hash
}

// PromoteToSuperuser выдаёт пользователю права суперпользователя.
func (u *User) PromoteToSuperuser() {
	u.IsSuperuser = true
}

// AddRoles добавляет роли в набор. Уже существующие роли пропускаются.
// Возвращает true, если набор изменился.
func (u *User) AddRoles(roles ...string) bool {
	changed := false
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || slices.Contains(u.Roles, r) {
			continue
		}
		u.Roles = append(u.Roles, r)
		changed = true
	}
	slices.Sort(u.Roles)
	return changed
}
