package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harwell/attest/internal/agent"
	"github.com/harwell/attest/internal/apperr"
	"github.com/harwell/attest/internal/audit"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/ingest"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/policy"
)

// Handler holds API route handlers.
type Handler struct {
	agent   *agent.Agent
	ingest  *ingest.Service
	catalog catalog.Store
	guard   *policy.Guard
	trail   *audit.Trail
}

// NewHandler creates a new Handler.
func NewHandler(ag *agent.Agent, ing *ingest.Service, cat catalog.Store, guard *policy.Guard, trail *audit.Trail) *Handler {
	return &Handler{agent: ag, ingest: ing, catalog: cat, guard: guard, trail: trail}
}

// writeAgentError maps pipeline errors onto HTTP statuses. An
// unavailable audit trail is the one case that turns an otherwise
// successful decision into a failure.
func writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrAuditUnavailable):
		slog.Error("audit trail unavailable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("audit trail unavailable"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Chat handles POST /api/chat.
//
//	@Summary		Run one request through the decision loop
//	@Tags			agent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatRequest	true	"Request"
//	@Success		200		{object}	agent.Response
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	resp, err := h.agent.Handle(r.Context(), agent.Request{
		User:       req.User,
		Query:      req.Query,
		DocumentID: req.DocumentID,
		RunID:      req.RunID,
		Standard:   req.Standard,
	})
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ask handles POST /api/ask.
//
//	@Summary		Answer a question from catalogued guidance
//	@Tags			agent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AskRequest	true	"Question"
//	@Success		200		{object}	agent.Response
//	@Security		BearerAuth
//	@Router			/ask [post]
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	resp, err := h.agent.Ask(r.Context(), req.User, req.Question, req.Standard)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List catalogued documents
//	@Tags			documents
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			standard	query		string	false	"Filter by standard"
//	@Success		200			{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	standard := q.Get("standard")

	docs, total, err := h.catalog.ListDocuments(limit, offset, standard)
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: total})
}

// IngestDocument handles POST /api/documents.
//
//	@Summary		Ingest a document into the corpus
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IngestRequest	true	"Document"
//	@Success		201		{object}	IngestResponse
//	@Success		200		{object}	IngestResponse	"Duplicate content, existing document returned"
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	doc, created, err := h.ingest.Ingest(r.Context(), ingest.Request{
		Title:      req.Title,
		Standard:   req.Standard,
		Tags:       req.Tags,
		UploadedBy: req.UploadedBy,
		Content:    []byte(req.Content),
	})
	if err != nil {
		slog.Error("ingest failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, IngestResponse{Document: *doc, Created: created})
}

// GetDocument handles GET /api/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.catalog.Document(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get document failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ArchiveDocument handles POST /api/documents/{id}/archive.
func (h *Handler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ingest.Archive(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("archive failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// DeleteDocument handles DELETE /api/documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ingest.Delete(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchDocuments handles GET /api/documents/search.
//
//	@Summary		Search catalogued documents by content
//	@Tags			documents
//	@Produce		json
//	@Param			q	query		string	true	"Search terms"
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents/search [get]
func (h *Handler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	docs, err := h.catalog.SearchDocuments(term, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// AnalyzeDocument handles POST /api/documents/{id}/feedback.
//
//	@Summary		Evaluate a document against the compliance checklist
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	agent.Response
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/feedback [post]
func (h *Handler) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := r.URL.Query().Get("user")
	resp, err := h.agent.Analyze(r.Context(), user, id)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PolicyCheck handles POST /api/policy/check: a dry-run evaluation that
// reports per-check violations without enforcing anything.
func (h *Handler) PolicyCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PolicyCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ans := req.Answer
	if ans.Status == "" {
		ans.Status = models.StatusOK
	}
	writeJSON(w, http.StatusOK, h.guard.Explain(ans))
}

// RecentAudit handles GET /api/audit.
func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.trail.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("audit query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, AuditListResponse{Records: records})
}
