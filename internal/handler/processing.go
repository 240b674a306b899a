package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 32 << 20

// multipartOverhead is the room allowed for form framing on top of the
// plan's largest file.
const multipartOverhead = 1 << 20

// ProcessingHandler runs media through the processing pipeline.
type ProcessingHandler struct {
	processor *service.Processor
	logger    *slog.Logger
}

// NewProcessingHandler creates a new ProcessingHandler.
func NewProcessingHandler(processor *service.Processor, logger *slog.Logger) *ProcessingHandler {
	return &ProcessingHandler{
		processor: processor,
		logger:    logger,
	}
}

// RegisterRoutes registers processing routes. Uploads are wrapped with
// uploadLimit so oversized bodies are cut off before parsing.
//
// Routes:
// - POST /api/transcriptions  -> Transcribe (multipart)
// - POST /api/subtitles       -> Subtitles
// - POST /api/translations    -> Translate
// - POST /api/summaries       -> Summarize
// - POST /api/rate/check      -> CheckRate
// - GET  /api/capacity        -> Capacity
func (h *ProcessingHandler) RegisterRoutes(mux *http.ServeMux, uploadLimit func(http.Handler) http.Handler) {
	mux.Handle("POST /api/transcriptions", uploadLimit(http.HandlerFunc(h.Transcribe)))
	mux.HandleFunc("POST /api/subtitles", h.Subtitles)
	mux.HandleFunc("POST /api/translations", h.Translate)
	mux.HandleFunc("POST /api/summaries", h.Summarize)
	mux.HandleFunc("POST /api/rate/check", h.CheckRate)
	mux.HandleFunc("GET /api/capacity", h.Capacity)
}

// Transcribe accepts a multipart upload with fields file and file_kind.
func (h *ProcessingHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	const op = "handler.transcribe"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	// The larger of the plan's two ceilings bounds the body before anything
	// is spooled; the exact per-kind check runs once the kind is known.
	ceiling := domain.LimitsFor(id.Tier).MaxBytes(domain.FileVideo)
	bodyLimit := ceiling + multipartOverhead
	if r.ContentLength > bodyLimit {
		ErrorResponse(w, r, h.logger, uploadTooLargeForPlan(op, id, r.ContentLength, ceiling))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) && tooLarge.Limit == bodyLimit {
			ErrorResponse(w, r, h.logger, uploadTooLargeForPlan(op, id, bodyLimit, ceiling))
			return
		}
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op,
				"The file exceeds the maximum upload size of %s", domain.FormatFileSize(tooLarge.Limit)))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINVALID, op, "Expected a multipart form upload"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "file", "Please select a file to upload"))
		return
	}
	defer file.Close()

	kind, valid := domain.ParseFileKind(r.FormValue("file_kind"))
	if !valid {
		kind = kindFromContentType(header.Header.Get("Content-Type"))
	}
	if kind == "" {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "file_kind", "Must be audio or video"))
		return
	}

	result, err := h.processor.Transcribe(r.Context(), id, service.TranscriptionInput{
		File:     file,
		FileName: header.Filename,
		Size:     header.Size,
		Kind:     kind,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func uploadTooLargeForPlan(op string, id domain.Identity, size, ceiling int64) error {
	reason := fmt.Sprintf("The upload (%s) exceeds the %s limit on the %s plan.",
		domain.FormatFileSize(size), domain.FormatFileSize(ceiling), id.Tier.DisplayName())
	return domain.PolicyDenied(op, id.Tier, domain.LimitVideo, reason)
}

// Subtitles fetches subtitles for {video_url}.
func (h *ProcessingHandler) Subtitles(w http.ResponseWriter, r *http.Request) {
	const op = "handler.subtitles"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		VideoURL string `json:"video_url"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.processor.Subtitles(r.Context(), id, req.VideoURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Translate translates {text} into {target_lang}.
func (h *ProcessingHandler) Translate(w http.ResponseWriter, r *http.Request) {
	const op = "handler.translate"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		Text       string `json:"text"`
		TargetLang string `json:"target_lang"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.processor.Translate(r.Context(), id, req.Text, req.TargetLang)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Summarize summarizes {text}.
func (h *ProcessingHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	const op = "handler.summarize"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "text", "No content provided for summary"))
		return
	}

	result, err := h.processor.Summarize(r.Context(), id, req.Text)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CheckRate records a {kind} request in the caller's rate window and reports
// the decision. A refusal is a 200 with allowed=false so clients can show the
// wait time before they upload.
func (h *ProcessingHandler) CheckRate(w http.ResponseWriter, r *http.Request) {
	const op = "handler.check_rate"

	id, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	kind, valid := domain.ParseRequestKind(req.Kind)
	if !valid {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "kind", "Must be upload or video"))
		return
	}

	status, err := h.processor.CheckRate(r.Context(), id, kind)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Capacity reports the engine's load.
func (h *ProcessingHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	c, err := h.processor.Capacity(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func kindFromContentType(ct string) domain.FileKind {
	switch {
	case strings.HasPrefix(ct, "audio/"):
		return domain.FileAudio
	case strings.HasPrefix(ct, "video/"):
		return domain.FileVideo
	default:
		return ""
	}
}
