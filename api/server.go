/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zap line per request
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for a browser frontend

ROUTE GROUPS:
  /health              Liveness, public
  /api/login           Public
  /api/*               Any logged-in user
  admin-only routes    Add sale, apply discount, reset data

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/middleware.go: Session and role checks
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mrbanana/bunch-ledger/auth"
	"github.com/mrbanana/bunch-ledger/logging"
)

// RouterOptions tunes the router. Zero value allows the local dev origins.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(h.Tokens))

			r.Get("/customers", h.ListCustomers)
			r.Get("/charts", h.Chart)

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Get("/export", h.ExportSales)
				r.Post("/share", h.ShareSales)
				r.With(auth.RequireAdmin).Post("/", h.CreateSale)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.ListPayments)
				r.Post("/", h.RecordPayment)
				r.Get("/summary", h.PaymentSummary)
				r.Get("/export", h.ExportPayments)
				r.Post("/share", h.SharePayments)
				r.Delete("/{id}", h.DeletePayment)
			})

			r.With(auth.RequireAdmin).Post("/discounts", h.ApplyDiscount)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/reset", h.ResetData)
			})
		})
	})

	return r
}
