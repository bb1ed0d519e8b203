package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Decision loop.
	r.Post("/chat", h.Chat)
	r.Post("/ask", h.Ask)

	// Document catalog.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.IngestDocument)
	r.Get("/documents/search", h.SearchDocuments)
	r.Get("/documents/{id}", h.GetDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	r.Post("/documents/{id}/archive", h.ArchiveDocument)
	r.Post("/documents/{id}/feedback", h.AnalyzeDocument)

	// Policy dry run.
	r.Post("/policy/check", h.PolicyCheck)

	// Audit trail (read-only).
	r.Get("/audit", h.RecentAudit)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
