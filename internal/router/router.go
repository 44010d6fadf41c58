// Package router sets up all HTTP routes and middleware chains for the
// CivicDocs API. Reads are public; every mutation sits behind the session
// and a rate limit.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civicdocs/internal/handlers"
	"civicdocs/internal/middleware"
	"civicdocs/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, documents *handlers.Documents, auth *handlers.Auth) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check — no auth.
	r.Get("/health", healthHandler)

	// Mutations share one limiter so a single client cannot hammer the
	// write path; reads are unmetered.
	writeLimiter := middleware.NewRateLimiter(60, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)
		r.Get("/me", auth.Me)

		r.Route("/documents", func(r chi.Router) {
			// Public reads — visibility is enforced per request.
			r.Get("/", documents.List)
			r.Get("/{slug}", documents.Show)

			// Authenticated writes.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(writeLimiter.Middleware)

				r.Post("/", documents.Create)
				r.Put("/{id}", documents.Update)
				r.Delete("/{id}", documents.Delete)
				r.Post("/{id}/restore", documents.Restore)
				r.Post("/{id}/pages", documents.StorePage)
				r.Post("/{id}/support", documents.Support)
				r.Post("/{id}/annotations", documents.CreateAnnotation)
			})
		})

		// Moderation — admin only.
		r.Route("/annotations", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)
			r.Use(writeLimiter.Middleware)

			r.Put("/{id}/hidden", documents.ModerateAnnotation)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
