// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status статус запроса ("OK" или "Error").
// Поле Error текст ошибки (опционально, при неуспехе).
// Поле Data данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Стабильные сообщения об ошибках. Детали причин остаются в логах.
const (
	MsgInvalidBody    = "invalid request body"
	MsgConflict       = "user with this email already exists"
	MsgUnauthorized   = "invalid credentials"
	MsgForbidden      = "forbidden"
	MsgNotFound       = "not found"
	MsgInvalidToken   = "invalid or expired token"
	MsgInvalidInput   = "invalid input"
	MsgInternal       = "internal error"
	MsgMissingBearer  = "missing or invalid authorization header"
	MsgNotSuperuser   = "superuser required"
	MsgInvalidUserID  = "invalid user id"
	MsgPasswordLength = "password must be between 8 and 72 bytes"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// FromError сопоставляет ошибку сервисного слоя HTTP-статусу и стабильному сообщению.
func FromError(err error) (int, Response) {
	switch {
	case errors.Is(err, password.ErrTooShort), errors.Is(err, password.ErrTooLong):
		return http.StatusUnprocessableEntity, Error(MsgPasswordLength)
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusUnprocessableEntity, Error(MsgInvalidInput)
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, Error(MsgConflict)
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, Error(MsgUnauthorized)
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, Error(MsgForbidden)
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, Error(MsgNotFound)
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusBadRequest, Error(MsgInvalidToken)
	default:
		return http.StatusInternalServerError, Error(MsgInternal)
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s long", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
