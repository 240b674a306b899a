// Package engine defines the contract of the external processing service
// that performs speech-to-text, translation, summarization and subtitle
// extraction.
package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// CapacityThreshold is the storage usage percentage at which the engine is
// considered busy.
const CapacityThreshold = 80

// Engine is the external processing service.
type Engine interface {
	// Transcribe uploads a media file and returns its transcription.
	Transcribe(ctx context.Context, file io.Reader, filename string) (string, error)

	// Translate translates a single chunk of at most 5000 characters.
	Translate(ctx context.Context, text, targetLang string) (string, error)

	// Summarize runs one summarization attempt.
	Summarize(ctx context.Context, req SummaryRequest) (string, error)

	// Subtitles returns the WebVTT subtitles of a hosted video.
	Subtitles(ctx context.Context, videoURL string) (string, error)

	// CheckCapacity reports storage and queue occupancy.
	CheckCapacity(ctx context.Context) (Capacity, error)
}

// SummaryRequest is the payload of one summarization attempt.
type SummaryRequest struct {
	Text          string `json:"text"`
	Attempt       int    `json:"attempt"`
	Aggressive    bool   `json:"aggressive"`
	IsLongContent bool   `json:"is_long_content"`
}

// Capacity is the engine's coarse load report.
type Capacity struct {
	Available      bool    `json:"available"`
	UsedPercentage float64 `json:"used_percentage"`
	QueueLength    int     `json:"queue_length"`
}

// NewCapacity derives availability from the used percentage.
func NewCapacity(usedPercentage float64, queueLength int) Capacity {
	return Capacity{
		Available:      usedPercentage < CapacityThreshold,
		UsedPercentage: usedPercentage,
		QueueLength:    queueLength,
	}
}

// Error codes for engine operations
var (
	// EEngineTimeout indicates the request did not finish in time
	EEngineTimeout = errors.New("engine request timed out")

	// EEngineUnavailable indicates the engine could not be reached or is overloaded
	EEngineUnavailable = errors.New("engine temporarily unavailable")

	// EEngineRejected indicates the engine refused the payload
	EEngineRejected = errors.New("engine rejected request")

	// EEngineNotFound indicates the engine has nothing for the requested input
	EEngineNotFound = errors.New("engine found no result")

	// EEngineEmptyResponse indicates a success status with no usable content
	EEngineEmptyResponse = errors.New("engine returned empty response")
)

// APIError is a non-2xx answer from the engine. Its message is the text
// shown to callers; Unwrap maps the status to one of the sentinel errors.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return EEngineTimeout
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return EEngineUnavailable
	case http.StatusNotFound:
		return EEngineNotFound
	default:
		return EEngineRejected
	}
}

// IsTimeout reports whether err is an engine timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, EEngineTimeout) || errors.Is(err, context.DeadlineExceeded)
}
