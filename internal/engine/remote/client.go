// Package remote implements engine.Engine over the processing service's
// HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ankurclub/clever-video-summarizer/internal/engine"
)

const (
	// DefaultBaseURL is where the processing service listens in development.
	DefaultBaseURL = "http://localhost:5000"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 64 * 1024 * 1024
)

// Config contains configuration for the remote engine client.
type Config struct {
	BaseURL           string
	TranscribeTimeout time.Duration
	TranslateTimeout  time.Duration
	SummaryTimeout    time.Duration
	SubtitleTimeout   time.Duration
	CapacityTimeout   time.Duration
}

// Client calls the processing service. Each operation runs under its own
// deadline; there are no automatic retries.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a remote engine client.
func New(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	// Set defaults
	if config.TranscribeTimeout == 0 {
		config.TranscribeTimeout = 10 * time.Minute
	}
	if config.TranslateTimeout == 0 {
		config.TranslateTimeout = 3 * time.Minute
	}
	if config.SummaryTimeout == 0 {
		config.SummaryTimeout = 5 * time.Minute
	}
	if config.SubtitleTimeout == 0 {
		config.SubtitleTimeout = 5 * time.Minute
	}
	if config.CapacityTimeout == 0 {
		config.CapacityTimeout = 10 * time.Second
	}

	if !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return nil, fmt.Errorf("engine base URL must start with http:// or https://, got %q", config.BaseURL)
	}

	return &Client{
		config: config,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Transcribe streams file as multipart field "file" to POST /get_transcription.
func (c *Client) Transcribe(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.TranscribeTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/get_transcription", pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out transcriptionResponse
	err = c.execute(ctx, req, c.config.TranscribeTimeout, &out, func(status int, body []byte) string {
		return fmt.Sprintf("Failed to transcribe file: %d", status)
	})
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", err
	}

	if out.Transcription == "" {
		return "", fmt.Errorf("%w: transcription service returned no text", engine.EEngineEmptyResponse)
	}
	return out.Transcription, nil
}

// Translate posts one chunk to POST /translate.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var out translateResponse
	err := c.postJSON(ctx, "/translate", c.config.TranslateTimeout, translateRequest{
		Text:       text,
		TargetLang: targetLang,
	}, &out, func(status int, body []byte) string {
		msg := fmt.Sprintf("Translation API error: %d", status)
		if detail := errorDetail(body); detail != "" {
			msg += " - " + detail
		}
		return msg
	})
	if err != nil {
		return "", err
	}

	if out.TranslatedText == "" {
		return "", fmt.Errorf("%w: Translation API did not return translated text", engine.EEngineEmptyResponse)
	}
	return out.TranslatedText, nil
}

// Summarize posts one attempt to POST /get_summary.
func (c *Client) Summarize(ctx context.Context, req engine.SummaryRequest) (string, error) {
	var out summaryResponse
	err := c.postJSON(ctx, "/get_summary", c.config.SummaryTimeout, req, &out, func(status int, body []byte) string {
		return strings.TrimSpace(fmt.Sprintf("Failed to generate summary: %d %s", status, string(body)))
	})
	if err != nil {
		return "", err
	}

	if out.Summary == "" {
		return "", fmt.Errorf("%w: Summary API did not return any content", engine.EEngineEmptyResponse)
	}
	return out.Summary, nil
}

// Subtitles posts the video URL to POST /get_subtitle.
func (c *Client) Subtitles(ctx context.Context, videoURL string) (string, error) {
	var out subtitleResponse
	err := c.postJSON(ctx, "/get_subtitle", c.config.SubtitleTimeout, subtitleRequest{
		VideoURL: videoURL,
	}, &out, func(status int, body []byte) string {
		if detail := errorDetail(body); detail != "" {
			return detail
		}
		return fmt.Sprintf("Failed to fetch subtitles: %d", status)
	})
	if err != nil {
		return "", err
	}

	if out.Subtitles == "" {
		return "", fmt.Errorf("%w: No subtitles found for this video", engine.EEngineNotFound)
	}
	return out.Subtitles, nil
}

// CheckCapacity reads GET /check_storage.
func (c *Client) CheckCapacity(ctx context.Context) (engine.Capacity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CapacityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/check_storage", nil)
	if err != nil {
		return engine.Capacity{}, fmt.Errorf("create request: %w", err)
	}

	var out capacityResponse
	err = c.execute(ctx, req, c.config.CapacityTimeout, &out, func(status int, body []byte) string {
		return fmt.Sprintf("Storage check failed: %d", status)
	})
	if err != nil {
		return engine.Capacity{}, err
	}

	return engine.NewCapacity(out.UsedPercentage, out.QueueLength), nil
}

func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, in, out any, describe func(int, []byte) string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.execute(ctx, req, timeout, out, describe)
}

// execute runs req and decodes a 2xx JSON body into out. Non-2xx answers
// become *engine.APIError with the message built by describe.
func (c *Client) execute(ctx context.Context, req *http.Request, timeout time.Duration, out any, describe func(int, []byte) string) error {
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s after %s", engine.EEngineTimeout, req.Method, req.URL.Path, timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", engine.EEngineUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: reading %s response", engine.EEngineTimeout, req.URL.Path)
		}
		return fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("Engine request finished",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &engine.APIError{
			Status:  resp.StatusCode,
			Message: describe(resp.StatusCode, body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: unmarshal %s response: %v", engine.EEngineEmptyResponse, req.URL.Path, err)
	}
	return nil
}

// errorDetail extracts {"error": "..."} from a body, or returns the raw text.
func errorDetail(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// API request/response types

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type subtitleRequest struct {
	VideoURL string `json:"video_url"`
}

type subtitleResponse struct {
	Subtitles string `json:"subtitles"`
}

type capacityResponse struct {
	UsedPercentage float64 `json:"used_percentage"`
	QueueLength    int     `json:"queue_length"`
}

type errorResponse struct {
	Error string `json:"error"`
}
var _ engine.Engine = (*Client)(nil)
