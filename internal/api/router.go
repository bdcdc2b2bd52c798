package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-blink/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.With(s.requirePermission(auth.PermNetworkRead)).Get("/metrics", s.handleMetrics)

			r.Route("/networks", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermNetworkRead)).Get("/", s.handleListNetworks)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermNetworkOperate))
					r.Post("/{index}/arm", s.handleArmNetwork)
					r.Post("/{index}/disarm", s.handleDisarmNetwork)
				})
			})

			r.With(s.requirePermission(auth.PermNetworkOperate)).Post("/refresh", s.handleRefresh)

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.bridge.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"bridge":  m.Status,
	})
}
