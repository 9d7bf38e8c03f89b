// Package httpapi serves the REST contract the fleetauth client talks to:
// token exchange, profile, signup, password reset and change, health.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fleetauth/internal/logging"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the handlers. Routes under the bearer group need a valid
// access token; a missing or bad one is answered with 401.
func NewRouter(h *Handler, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(withRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", h.Token)
		r.Post("/signup", h.Signup)
		r.Post("/password-reset-request", h.PasswordResetRequest)
		r.Post("/password-reset-confirm", h.PasswordResetConfirm)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(h.users))
			r.Get("/me", h.Me)
			r.Put("/me", h.UpdateMe)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	return r
}
