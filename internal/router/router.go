package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chimera-backend/internal/handlers"
	"chimera-backend/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	frontendURL string,
	uploadDir string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Message rate limiter (30 req/min per IP); the outbound Gemini budget
	// is enforced separately inside services.
	messageLimiter := middleware.NewRateLimiter(30, time.Minute)

	r.Get("/api/health", healthHandler.Check)

	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(messageLimiter.Middleware)
			r.Post("/message", chatHandler.SendMessage)
		})

		r.Get("/conversations", chatHandler.ListConversations)
		r.Post("/conversations", chatHandler.CreateConversation)
		r.Get("/conversations/{id}", chatHandler.GetConversation)
		r.Delete("/conversations/{id}", chatHandler.DeleteConversation)
	})

	// Stored attachments are served straight from the uploads directory.
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))

	return r
}
