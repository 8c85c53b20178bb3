// Package router sets up all HTTP routes and middleware chains for the
// catalog service. Routes are grouped into the JSON API, the rate-limited
// admin mutations, and the HTML pages.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"techbar/internal/handlers"
	"techbar/internal/metrics"
	"techbar/internal/middleware"
)

// Handlers bundles the handler groups mounted by New.
type Handlers struct {
	Catalog     *handlers.Catalog
	Submissions *handlers.Submissions
	Overhead    *handlers.Overhead
	Pages       *handlers.Pages
}

// New creates the chi router with all middleware and route groups wired
// up. limiter guards the admin mutations; m may be nil.
func New(h Handlers, m *metrics.Metrics, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger(m))
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Route("/kapps/{kapp}", func(r chi.Router) {
			r.Get("/tree", h.Catalog.Tree)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.Catalog.List)
				r.Get("/roots", h.Catalog.Roots)
				r.Get("/{slug}", h.Catalog.Show)
				r.Get("/{slug}/children", h.Catalog.Children)
				r.Get("/{slug}/descendants", h.Catalog.Descendants)
				r.Get("/{slug}/trail", h.Catalog.Trail)

				// Every mutation rebuilds the whole hierarchy.
				r.Group(func(r chi.Router) {
					r.Use(limiter.Middleware)
					r.Post("/", h.Catalog.Create)
					r.Put("/{slug}", h.Catalog.Update)
					r.Delete("/{slug}", h.Catalog.Delete)
				})
			})

			r.Get("/forms", h.Catalog.Forms)
			r.With(limiter.Middleware).Post("/refresh", h.Catalog.Refresh)
			r.With(limiter.Middleware).Post("/export", h.Catalog.Export)
		})

		r.With(limiter.Middleware).Post("/refresh", h.Catalog.RefreshAll)

		r.Get("/submissions/{id}/await", h.Submissions.Await)
		r.Get("/techbars/{id}/overhead", h.Overhead.JSON)
	})

	r.Get("/kapps/{kapp}", h.Pages.Kapp)
	r.Get("/kapps/{kapp}/categories/{slug}", h.Pages.Category)
	r.Get("/techbars/{id}/overhead", h.Overhead.Page)

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
