package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/missioncontrol/internal/middleware"
)

// RouteDeps carries the middleware dependencies of the authenticated routes.
type RouteDeps struct {
	Tokens      middleware.TokenValidator
	Idempotency middleware.IdempotencyStore     // optional
	LiveFeed    http.HandlerFunc                // optional WebSocket endpoint
	RateLimit   func(http.Handler) http.Handler // optional, keyed by the authenticated tenant
}

// MountRoutes registers all routes on the given chi router. Every route but
// /health requires a bearer token.
func MountRoutes(r chi.Router, h *Handlers, deps RouteDeps) {
	r.Get("/health", Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.Tokens))
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}

		if deps.LiveFeed != nil {
			r.Get("/ws", deps.LiveFeed)
		}

		// Ingestion
		r.Post("/openclaw/event", h.HandleRunEvent)
		r.Group(func(r chi.Router) {
			if deps.Idempotency != nil {
				r.Use(middleware.Idempotency(deps.Idempotency))
			}
			r.Post("/dispatch", h.HandleDispatch)
		})

		r.Route("/api/v1", func(r chi.Router) {
			if deps.Idempotency != nil {
				r.Use(middleware.Idempotency(deps.Idempotency))
			}

			// Tasks
			r.Get("/tasks", handleList(h.Tasks.List))
			r.Post("/tasks", handleCreate(h.Tasks.Create, "task not found"))
			r.Get("/tasks/{id}", handleGet(h.Tasks.Get, "task not found"))
			r.Patch("/tasks/{id}", h.UpdateTask)
			r.Put("/tasks/{id}/status", h.UpdateTaskStatus)
			r.Put("/tasks/{id}/assignees", h.UpdateTaskAssignees)
			r.Post("/tasks/{id}/archive", h.ArchiveTask)
			r.Post("/tasks/{id}/run", h.LinkTaskRun)
			r.Get("/tasks/{id}/messages", handleListByParam("id", h.Messages.List, "task not found"))
			r.Post("/tasks/{id}/messages", h.SendMessage)
			r.Get("/tasks/{id}/documents", handleListByParam("id", h.Documents.ListByTask, "task not found"))

			// Agents
			r.Get("/agents", handleList(h.Agents.List))
			r.Post("/agents", handleCreate(h.Agents.Create, "agent not found"))
			r.Get("/agents/{id}", handleGet(h.Agents.Get, "agent not found"))
			r.Patch("/agents/{id}", h.UpdateAgent)
			r.Put("/agents/{id}/status", h.UpdateAgentStatus)
			r.Delete("/agents/{id}", handleDelete(h.Agents.Delete, "agent not found"))
			r.Post("/seed", h.SeedAgents)

			// Documents and feed
			r.Get("/documents", h.ListDocuments)
			r.Post("/documents", handleCreate(h.Documents.Create, "referenced record not found"))
			r.Get("/documents/{id}", handleGet(h.Documents.GetWithContext, "document not found"))
			r.Get("/activities", h.ListActivities)

			// Usage
			r.Get("/usage/today", h.UsageToday)
			r.Get("/usage/daily", h.UsageDaily)
			r.Get("/usage/hourly", h.UsageHourly)
			r.Post("/usage/reconcile", h.ReconcileUsage)

			// Dispatcher
			r.Get("/dispatcher/tasks", handleList(h.Dispatch.ListDispatchable))
			r.Post("/dispatcher/tasks/{id}/dispatched", h.MarkDispatched)
			r.Post("/dispatcher/tasks/{id}/error", h.ReportDispatchError)
			r.Put("/dispatcher/agents/{name}/container", h.UpdateContainerState)

			// Tokens and settings
			r.Get("/tokens", handleList(h.Auth.ListTokens))
			r.Post("/tokens", h.CreateToken)
			r.Delete("/tokens/{id}", h.RevokeToken)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
		})
	})
}
