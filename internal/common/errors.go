// Package common содержит сентинел-ошибки, общие для сервисного и HTTP слоёв.
// Сравнивать их нужно через errors.Is.
package common

import "errors"

var (
	// ErrConflict пользователь с таким email уже существует.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized неверные учётные данные или недействительная сессия.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden пользователь аутентифицирован, но действие ему запрещено.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound запрошенный ресурс отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken токен подделан, просрочен, уже использован или выпущен для другой цели.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidInput входные данные не прошли проверку.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal внутренняя ошибка, подробности которой не раскрываются клиенту.
	ErrInternal = errors.New("internal error")
)
