// Package addroles реализует HTTP-обработчик выдачи ролей пользователю.
package addroles

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Request роли, которые нужно добавить. Уже выданные роли пропускаются.
type Request struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required,max=64"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service добавляет роли пользователю.
type Service interface {
	AssignRoles(ctx context.Context, targetID string, roles []string) (*models.User, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдача ролей
// @Description Добавляет роли пользователю. Доступно только суперпользователю.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param user_id path string true "ID пользователя"
// @Param request body Request true "Роли"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Требуется аутентификация"
// @Failure 403 {object} response.ErrorResponse "Требуются права суперпользователя"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /roles/add/{user_id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.addroles"

	userID := chi.URLParam(r, "user_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgInvalidBody))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, err := h.service.AssignRoles(r.Context(), userID, req.Roles)
	if err != nil {
		status, resp := response.FromError(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to assign roles", sl.Err(err))
		} else {
			log.Info("role assignment rejected", sl.Err(err))
		}
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("roles assigned", slog.Any("roles", user.Roles))
	render.JSON(w, r, response.OKWithData(user))
}
