package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/language"
	"github.com/ankurclub/clever-video-summarizer/internal/subtitle"
)

// =============================================================================
// Response Types
// =============================================================================

// PlanInfo describes one tier for the pricing page.
type PlanInfo struct {
	Tier     domain.PlanTier   `json:"tier"`
	Name     string            `json:"name"`
	Limits   domain.PlanLimits `json:"limits"`
	MaxAudio string            `json:"max_audio"`
	MaxVideo string            `json:"max_video"`
}

// DetectedLanguage is the response of language detection.
type DetectedLanguage struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// =============================================================================
// Handler Configuration
// =============================================================================

// CatalogHandler serves stateless lookups: plans, languages and the
// subtitle converter. None of its routes touch quota or rate state.
type CatalogHandler struct {
	classifier *language.Classifier
	logger     *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(classifier *language.Classifier, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		classifier: classifier,
		logger:     logger,
	}
}

// RegisterRoutes registers the catalog routes.
//
// Routes:
// - GET  /api/plans              -> Plans
// - GET  /api/languages          -> Languages
// - POST /api/languages/detect   -> DetectLanguage
// - POST /api/subtitles/convert  -> ConvertSubtitles
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/plans", h.Plans)
	mux.HandleFunc("GET /api/languages", h.Languages)
	mux.HandleFunc("POST /api/languages/detect", h.DetectLanguage)
	mux.HandleFunc("POST /api/subtitles/convert", h.ConvertSubtitles)
}

// =============================================================================
// Handlers
// =============================================================================

// Plans returns the limits of every tier, lowest first.
func (h *CatalogHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans := make([]PlanInfo, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		limits := domain.LimitsFor(tier)
		plans = append(plans, PlanInfo{
			Tier:     tier,
			Name:     tier.DisplayName(),
			Limits:   limits,
			MaxAudio: domain.FormatFileSize(limits.MaxAudioBytes),
			MaxVideo: domain.FormatFileSize(limits.MaxVideoBytes),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// Languages returns the supported language picker options.
func (h *CatalogHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": language.Catalog()})
}

// DetectLanguage detects the language of {text}.
func (h *CatalogHandler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.detect_language"

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	code := h.classifier.DetectAndNormalize(req.Text)
	writeJSON(w, http.StatusOK, DetectedLanguage{Code: code, Label: language.Label(code)})
}

// ConvertSubtitles converts {vtt} to SRT and plain text.
func (h *CatalogHandler) ConvertSubtitles(w http.ResponseWriter, r *http.Request) {
	const op = "handler.convert_subtitles"

	var req struct {
		VTT string `json:"vtt"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.VTT) == "" {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "vtt", "Subtitles are required"))
		return
	}

	srt := subtitle.VTTToSRT(req.VTT)
	writeJSON(w, http.StatusOK, map[string]string{
		"srt":  srt,
		"text": subtitle.CleanText(srt),
	})
}
