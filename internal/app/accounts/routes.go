package accounts

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/account-service/docs"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/token"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/email/resend"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/email/verify"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/password/requestreset"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/password/reset"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/addroles"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/remove"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	accountsservice "github.com/magabrotheeeer/account-service/internal/services/accounts"
	"github.com/magabrotheeeer/account-service/internal/services/verification"
)

// Services сервисы, которые обслуживает HTTP API.
type Services struct {
	Accounts     *accountsservice.AccountService
	Verification *verification.VerificationService
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, services Services, registerer prometheus.Registerer, gatherer prometheus.Gatherer, checks map[string]health.Pinger) {
	metrics := middlewarectx.NewMetrics(registerer)

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, services.Accounts).ServeHTTP)
		r.Post("/token", token.New(logger, services.Accounts).ServeHTTP)
		r.Get("/email/verify", verify.New(logger, services.Verification).ServeHTTP)
		r.Post("/request-password-reset", requestreset.New(logger, services.Verification).ServeHTTP)
		r.Get("/request-password-reset", requestreset.New(logger, services.Verification).ServeHTTP)
		r.Post("/reset-password", reset.New(logger, services.Verification).ServeHTTP)

		// Группа с bearer-аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.BearerAuth(services.Accounts, logger))
			r.Get("/me", me.New(logger).ServeHTTP)
			r.Post("/email/verify/resend", resend.New(logger, services.Verification).ServeHTTP)
			r.Delete("/user/delete/{user_id}", remove.New(logger, services.Accounts).ServeHTTP)

			r.With(middlewarectx.RequireSuperuser(logger)).
				Patch("/roles/add/{user_id}", addroles.New(logger, services.Accounts).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, checks).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
