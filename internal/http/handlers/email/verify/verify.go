// Package verify реализует HTTP-обработчик подтверждения почты по ссылке из письма.
package verify

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Handler обрабатывает переход по ссылке подтверждения почты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service погашает токен подтверждения почты.
type Service interface {
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Подтверждение почты
// @Description Погашает одноразовый токен из письма и отмечает почту подтверждённой
// @Tags Email
// @Produce  json
// @Param token query string true "Токен подтверждения почты"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Недействительный или использованный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /email/verify [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.email.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Info("token is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgInvalidToken))
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		status, resp := response.FromError(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to verify email", sl.Err(err))
		} else {
			log.Info("email verification rejected", sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("email verified", slog.String("user_id", user.ID))
	render.JSON(w, r, response.OKWithData(user))
}
