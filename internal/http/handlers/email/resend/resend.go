// Package resend реализует HTTP-обработчик повторной отправки письма подтверждения почты.
package resend

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service отправляет письмо подтверждения почты текущему пользователю.
type Service interface {
	RequestEmailVerification(ctx context.Context, user *models.User) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Повторная отправка письма подтверждения
// @Description Для уже подтверждённой почты письмо не отправляется
// @Tags Email
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Требуется аутентификация"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /email/verify/resend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.email.resend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.MsgMissingBearer))
		return
	}

	if err := h.service.RequestEmailVerification(r.Context(), user); err != nil {
		log.Error("failed to request email verification", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"email_verified": user.EmailVerified,
	}))
}
