package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alexberardi/jarvis-ocr-service/internal/http/handlers"
	"github.com/alexberardi/jarvis-ocr-service/internal/infra"
	"github.com/alexberardi/jarvis-ocr-service/internal/middleware"
)

// NewRouter wires the callback server routes.
func NewRouter(app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/internal", func(r chi.Router) {
		r.Post("/validation/callback", app.ValidationCallback)
		r.Get("/queue/status", app.QueueStatus)
	})

	return r
}
