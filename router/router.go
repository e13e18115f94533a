// Package router wires the chi route tree: middleware chain, then the
// per-endpoint-group handlers.
package router

import (
	"net/http"

	"github.com/autofi/ai-engine/handler"
	"github.com/autofi/ai-engine/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles every endpoint-group handler the router dispatches to.
type Handlers struct {
	Recommendations *handler.RecommendationsHandler
	Assistant       *handler.AssistantHandler
	Feedback        *handler.FeedbackHandler
	Popular         *handler.PopularQueryHandler
	Health          *handler.HealthHandler
}

// New builds the full chi router: unauthenticated routes first, then the
// bearer-auth-gated API surface, each behind the shared CORS/security
// headers/request-id/rate-limit chain.
func New(h Handlers, auth *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(corsOrigins))

	r.Get("/health", h.Health.Check)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ai/popular-queries", h.Popular.Top)

		r.Group(func(r chi.Router) {
			r.Use(auth.Handler)
			r.Use(rateLimiter.Handler)

			r.Get("/recommendations/user/{user_id}", h.Recommendations.ForUser)
			r.Get("/recommendations/similar/{vehicle_id}", h.Recommendations.Similar)

			r.Post("/ai/query", h.Assistant.Query)
			r.Get("/ai/context/{user_id}", h.Assistant.Context)
			r.Post("/ai/feedback", h.Feedback.Submit)
		})
	})

	return r
}
