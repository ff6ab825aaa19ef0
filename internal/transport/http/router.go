package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hometasks/auth-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

// RouterConfig — зависимости и настройки маршрутизатора.
type RouterConfig struct {
	Logger  *slog.Logger
	Limiter middleware.RequestLimiter
	// Timeout — бюджет обработки одного запроса.
	Timeout time.Duration
}

// NewRouter собирает chi-роутер auth-сервиса.
//
// Порядок мидлваров важен: Recover внешним (ловит паники всех
// последующих), затем RequestID и Logging (каждый запрос получает id и
// строку лога, включая отброшенные лимитером), затем RateLimit —
// троттлинг до какой-либо работы, и Timeout ближе к хендлерам.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.RateLimit(cfg.Limiter))
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(middleware.AuthBearer())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/logout-all", h.LogoutAll)
		r.Get("/me", h.Me)
		r.Delete("/me", h.DeleteMe)
	})

	return r
}
