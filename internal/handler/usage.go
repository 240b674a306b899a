package handler

import (
	"log/slog"
	"net/http"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/service"
)

// UsageHandler exposes quota counters and the plan gates.
type UsageHandler struct {
	quota  service.QuotaService
	policy service.PolicyService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(quota service.QuotaService, policy service.PolicyService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		quota:  quota,
		policy: policy,
		logger: logger,
	}
}

// RegisterRoutes registers usage routes. The reset route is administrative
// and is wrapped with requireAdmin.
//
// Routes:
// - GET  /api/usage            -> Usage
// - POST /api/uploads/attempt  -> AttemptUpload
// - POST /api/process/attempt  -> AttemptProcess
// - POST /api/usage/reset      -> Reset (admin)
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/usage", h.Usage)
	mux.HandleFunc("POST /api/uploads/attempt", h.AttemptUpload)
	mux.HandleFunc("POST /api/process/attempt", h.AttemptProcess)
	mux.Handle("POST /api/usage/reset", requireAdmin(http.HandlerFunc(h.Reset)))
}

// Usage returns the caller's counters, limits and what remains.
func (h *UsageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	snapshot, err := h.quota.Usage(r.Context(), id.Key, id.Tier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// AttemptUpload checks {file_size, file_kind} against the caller's plan
// without recording anything.
func (h *UsageHandler) AttemptUpload(w http.ResponseWriter, r *http.Request) {
	const op = "handler.attempt_upload"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		FileSize int64  `json:"file_size"`
		FileKind string `json:"file_kind"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	kind, valid := domain.ParseFileKind(req.FileKind)
	var verr error
	if !valid {
		verr = domain.NewValidationError(op, "file_kind", "Must be audio or video")
	}
	if req.FileSize < 0 {
		verr = domain.AddFieldError(verr, "file_size", "Must not be negative")
	}
	if verr != nil {
		ErrorResponse(w, r, h.logger, verr)
		return
	}

	if err := h.policy.AttemptUpload(r.Context(), id, req.FileSize, kind); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": true})
}

// AttemptProcess checks that the caller's plan grants {operation}.
func (h *UsageHandler) AttemptProcess(w http.ResponseWriter, r *http.Request) {
	const op = "handler.attempt_process"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		Operation string `json:"operation"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	operation, valid := domain.ParseOperation(req.Operation)
	if !valid {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "operation", "Unknown operation"))
		return
	}

	if err := h.policy.AttemptProcess(r.Context(), id, operation); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": true})
}

// Reset clears the monthly or daily counter of {identity}.
func (h *UsageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	const op = "handler.reset_usage"

	var req struct {
		Identity string `json:"identity"`
		Period   string `json:"period"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !domain.ValidIdentityKey(req.Identity) {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "identity", "Invalid identity"))
		return
	}

	var err error
	switch req.Period {
	case "monthly":
		err = h.quota.ResetMonthly(r.Context(), req.Identity)
	case "daily":
		err = h.quota.ResetDaily(r.Context(), req.Identity)
	default:
		err = domain.NewValidationError(op, "period", "Must be monthly or daily")
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("usage reset", "identity", req.Identity, "period", req.Period)
	writeJSON(w, http.StatusOK, map[string]string{"identity": req.Identity, "period": req.Period})
}
