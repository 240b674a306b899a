package handler

import (
	"log/slog"
	"net/http"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/report"
	"github.com/ankurclub/clever-video-summarizer/internal/service"
)

// ArtifactSummary is a list entry without the content body.
type ArtifactSummary struct {
	ID        string              `json:"id"`
	Kind      domain.ArtifactKind `json:"type"`
	FileName  string              `json:"file_name"`
	ByteSize  int64               `json:"file_size"`
	CreatedAt string              `json:"timestamp"`
}

// ArtifactHandler serves the caller's stored results.
type ArtifactHandler struct {
	results service.ResultService
	logger  *slog.Logger
}

// NewArtifactHandler creates a new ArtifactHandler.
func NewArtifactHandler(results service.ResultService, logger *slog.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		results: results,
		logger:  logger,
	}
}

// RegisterRoutes registers artifact routes.
//
// Routes:
// - GET    /api/artifacts              -> List
// - GET    /api/artifacts/{id}         -> Show
// - DELETE /api/artifacts/{id}         -> Delete
// - POST   /api/artifacts/{id}/export  -> Export (?format=txt|pdf)
func (h *ArtifactHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/artifacts", h.List)
	mux.HandleFunc("GET /api/artifacts/{id}", h.Show)
	mux.HandleFunc("DELETE /api/artifacts/{id}", h.Delete)
	mux.HandleFunc("POST /api/artifacts/{id}/export", h.Export)
}

// List returns the caller's artifacts, newest first, without content.
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	artifacts, err := h.results.List(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]ArtifactSummary, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, ArtifactSummary{
			ID:        a.ID,
			Kind:      a.Kind,
			FileName:  a.FileName,
			ByteSize:  a.ByteSize,
			CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": items})
}

// Show returns one artifact with its content.
func (h *ArtifactHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	artifact, err := h.results.Get(r.Context(), id, r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// Delete removes an artifact. Absent and foreign ids report deleted=false.
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	deleted, err := h.results.Delete(r.Context(), id, r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// Export writes an artifact to object storage and returns its URL. The
// optional format query parameter selects txt (default) or pdf.
func (h *ArtifactHandler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handler.export_artifact"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	format, valid := report.ParseFormat(r.URL.Query().Get("format"))
	if !valid {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "format", "Must be txt or pdf"))
		return
	}

	result, err := h.results.Export(r.Context(), id, r.PathValue("id"), format)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
