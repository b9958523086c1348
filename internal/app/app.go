package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"remindbot/internal/app/deps"
	"remindbot/internal/app/services"
	"remindbot/internal/config"
	"remindbot/internal/http/handlers/response"
	"remindbot/internal/http/handlers/telegram"
)

func InitHttpServer(deps *deps.Deps, s *services.Services) *http.Server {
	webhookPath := config.WebhookPath(deps.Config.TelegramURLSecret)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Method(http.MethodPost, webhookPath, telegram.NewHandler(deps.Logger, s.HandleUpdate))
	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		response.RenderHealthy(rw)
	})

	return &http.Server{
		Handler:           router,
		Addr:              deps.Config.HttpAddr,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
