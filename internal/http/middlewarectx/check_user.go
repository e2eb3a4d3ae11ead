package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// RequireSuperuser пропускает дальше только суперпользователя. Ставится после BearerAuth.
func RequireSuperuser(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := log.With(
				slog.String("op", "middlewarectx.RequireSuperuser"),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.MsgMissingBearer))
				return
			}

			if !user.IsSuperuser {
				log.Info("superuser required, access denied", slog.String("user_id", user.ID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(response.MsgNotSuperuser))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
