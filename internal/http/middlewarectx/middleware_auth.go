// Package middlewarectx содержит HTTP middleware аутентификации, проверки прав и метрик.
//
// BearerAuth проверяет bearer-токен из заголовка Authorization и кладёт
// текущего пользователя в контекст запроса. Если пользователь удалён после
// выпуска токена, запрос отклоняется с 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/common"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ текущего пользователя в контексте.
const User Key = "user"

const bearerPrefix = "Bearer "

// Authenticator проверяет bearer-токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User, user)
}

// UserFromContext достаёт пользователя, положенного BearerAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(User).(*models.User)
	return user, ok && user != nil
}

// BearerAuth возвращает HTTP middleware, который проверяет bearer-токен в заголовке Authorization.
func BearerAuth(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.BearerAuth"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
			if !strings.HasPrefix(authHeader, bearerPrefix) || tokenStr == "" {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.MsgMissingBearer))
				return
			}

			user, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				if errors.Is(err, common.ErrUnauthorized) {
					log.Info("invalid or expired token", sl.Err(err))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error(response.MsgInvalidToken))
					return
				}
				log.Error("failed to authenticate", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.MsgInternal))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
