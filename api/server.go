/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zerolog:    Structured request logging
  4. CORS:       Cross-origin requests for the desktop/web frontend

ROUTE GROUPS:
  /api/drafts/*    Draft listing, edits, generation
  /api/rulesets/*  Ruleset configuration documents
  /api/companies/* Counterparty management
  /api/extra       Reimbursable pool
  /api/watermark   Last-invoiced-month watermark
  /api/invoices    Generated invoice records
  /api/recompute   Explicit recomputation trigger

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", h.ListDrafts)
			r.Post("/{ruleset}/{year}/{month}/{split}/edit", h.EditDraft)
			r.Post("/{ruleset}/{year}/{month}/{split}/generate", h.GenerateDraft)
		})

		r.Route("/rulesets", func(r chi.Router) {
			r.Get("/", h.ListRulesets)
			r.Post("/", h.SaveRuleset)
			r.Get("/{id}", h.GetRuleset)
			r.Delete("/{id}", h.DeleteRuleset)
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.SaveCompany)
			r.Delete("/{id}", h.DeleteCompany)
		})

		r.Get("/extra", h.GetExtraPool)
		r.Put("/extra", h.SetExtraPool)
		r.Get("/watermark", h.GetWatermark)
		r.Get("/invoices", h.ListGeneratedInvoices)
		r.Post("/recompute", h.TriggerRecompute)
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
