package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/engine"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code              string            `json:"code"`
	Message           string            `json:"message"`
	Limit             domain.LimitKind  `json:"limit,omitempty"`
	Tier              domain.PlanTier   `json:"tier,omitempty"`
	Upgrade           string            `json:"upgrade,omitempty"`
	RetryAfterMinutes int               `json:"retry_after_minutes,omitempty"`
	Fields            map[string]string `json:"fields,omitempty"`
}

// JSONError wraps ErrorBody.
type JSONError struct {
	Error ErrorBody `json:"error"`
}

// ErrorResponse maps err to a status and writes it as JSON. Policy denials
// carry their limit and upgrade hint; rate limits set Retry-After.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		ValidationErrorResponse(w, r, logger, err)
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	if code == domain.EUPSTREAM && engine.IsTimeout(err) {
		status = http.StatusGatewayTimeout
	}

	logError(logger, r, err, code, domain.ErrorOp(err), status)

	body := ErrorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
	}

	if d, ok := domain.DenialOf(err); ok {
		body.Limit = d.Limit
		body.Tier = d.Tier
		body.Upgrade = d.Upgrade
	}

	if t, ok := domain.ThrottleOf(err); ok {
		seconds := int(math.Ceil(t.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		body.RetryAfterMinutes = int(math.Ceil(t.RetryAfter.Minutes()))
	}

	writeJSON(w, status, JSONError{Error: body})
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN, domain.EPOLICY:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.ERATELIMIT, domain.EANOMALY:
		return http.StatusTooManyRequests // 429
	case domain.EUPSTREAM:
		return http.StatusBadGateway // 502
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// ValidationErrorResponse writes field-level validation errors.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, logger, err)
		return
	}

	logger.Info("validation error",
		"op", ve.Op,
		"field_count", len(ve.Fields),
		"path", r.URL.Path,
	)

	writeJSON(w, http.StatusBadRequest, JSONError{Error: ErrorBody{
		Code:    domain.EINVALID,
		Message: "Validation failed",
		Fields:  ve.Fields,
	}})
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// UnauthorizedResponse is a convenience wrapper for 401 errors.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.EUNAUTHORIZED, "", "%s", message))
}

// logError logs 5xx at Error and 4xx at Info.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("server error", attrs...)
	} else if status >= 400 {
		logger.Info("client error", attrs...)
	}
}

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSON is writeJSON for other packages' handlers.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}
