package api

import (
	"architect/internal/api/handlers"
	"architect/internal/api/middleware"
	"architect/internal/app"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP API. Everything except health, login and
// register requires a bearer token.
func NewRouter(config *app.Config) http.Handler {
	h := handlers.NewHandlers(config)
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(config.Auth.Middleware)

			r.Get("/me", h.Me)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", h.CreateConversation)
				r.Get("/", h.ListConversations)
				r.Get("/{id}", h.GetConversation)
				r.Delete("/{id}", h.DeleteConversation)
				r.Post("/{id}/messages", h.SendMessage)
				r.Post("/{id}/advance", h.AdvancePhase)
				r.Put("/{id}/answers", h.SetAnswer)
				r.Post("/{id}/specifications", h.Synthesize)
			})

			r.Route("/specifications", func(r chi.Router) {
				r.Get("/", h.ListSpecifications)
				r.Get("/{id}", h.GetSpecification)
				r.Patch("/{id}", h.UpdateSpecification)
				r.Get("/{id}/export", h.ExportSpecification)
			})

			r.Get("/templates", h.ListTemplates)
		})
	})

	return r
}
