// Package httpx exposes the provisioning API over HTTP. Authentication and
// authorization live in the gateway in front of this service; handlers only
// read the user id it injects.
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Tracing)

	r.Get("/healthz", handler.Healthz)

	r.Route("/organisations", func(r chi.Router) {
		r.Post("/", handler.CreateOrganization)
		r.Route("/{org}", func(r chi.Router) {
			r.Post("/applications", handler.CreateApplication)
			r.Post("/applications/{app}/releases", handler.CreateRelease)
			r.Post("/users", handler.AddUser)
			r.Put("/users/{username}", handler.UpdateUser)
			r.Delete("/users/{username}", handler.RemoveUser)
		})
	})

	return r
}
