// Package mock provides an in-process engine.Engine for tests and local
// development without the processing service.
package mock

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ankurclub/clever-video-summarizer/internal/engine"
)

// SampleVTT is returned by Subtitles unless overridden.
const SampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.500
Welcome to the demo video.

00:00:02.500 --> 00:00:05.000
Today we look at summarization.
`

// SampleSummary passes the summary validity check.
const SampleSummary = "The speaker introduces the product and explains how uploads are processed. " +
	"Transcripts are generated by a speech model and then condensed into key points. " +
	"Finally the talk covers pricing tiers and the limits attached to each plan."

// Engine is a mock engine with configurable responses.
type Engine struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	TranscribeResponse string
	TranscribeError    error
	TranslateFunc      func(text, targetLang string) (string, error)
	SummarizeFunc      func(req engine.SummaryRequest) (string, error)
	SubtitlesResponse  string
	SubtitlesError     error
	CapacityResponse   *engine.Capacity
	CapacityError      error

	// Call tracking for testing
	TranscribeCalls int
	TranslateCalls  int
	SummarizeCalls  int
	SubtitlesCalls  int
	CapacityCalls   int
	SummaryRequests []engine.SummaryRequest
}

// New creates a new mock engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Transcribe drains file and returns a canned transcription.
func (e *Engine) Transcribe(ctx context.Context, file io.Reader, filename string) (string, error) {
	n, err := io.Copy(io.Discard, file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.TranscribeCalls++

	if e.TranscribeError != nil {
		return "", e.TranscribeError
	}
	if e.TranscribeResponse != "" {
		return e.TranscribeResponse, nil
	}

	e.logger.Debug("Mock transcription", "filename", filename, "bytes", n)
	return "This is a mock transcription of " + filename + ". It stands in for the speech model output.", nil
}

// Translate returns the text unchanged unless TranslateFunc is set.
func (e *Engine) Translate(ctx context.Context, text, targetLang string) (string, error) {
	e.mu.Lock()
	e.TranslateCalls++
	fn := e.TranslateFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(text, targetLang)
	}
	return text, nil
}

// Summarize returns SampleSummary unless SummarizeFunc is set.
func (e *Engine) Summarize(ctx context.Context, req engine.SummaryRequest) (string, error) {
	e.mu.Lock()
	e.SummarizeCalls++
	e.SummaryRequests = append(e.SummaryRequests, req)
	fn := e.SummarizeFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return SampleSummary, nil
}

// Subtitles returns SampleVTT unless overridden.
func (e *Engine) Subtitles(ctx context.Context, videoURL string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SubtitlesCalls++

	if e.SubtitlesError != nil {
		return "", e.SubtitlesError
	}
	if e.SubtitlesResponse != "" {
		return e.SubtitlesResponse, nil
	}
	return SampleVTT, nil
}

// CheckCapacity reports an idle engine unless overridden.
func (e *Engine) CheckCapacity(ctx context.Context) (engine.Capacity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CapacityCalls++

	if e.CapacityError != nil {
		return engine.Capacity{}, e.CapacityError
	}
	if e.CapacityResponse != nil {
		return *e.CapacityResponse, nil
	}
	return engine.NewCapacity(0, 0), nil
}

// Reset clears call counters and custom responses for testing.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.TranscribeResponse = ""
	e.TranscribeError = nil
	e.TranslateFunc = nil
	e.SummarizeFunc = nil
	e.SubtitlesResponse = ""
	e.SubtitlesError = nil
	e.CapacityResponse = nil
	e.CapacityError = nil

	e.TranscribeCalls = 0
	e.TranslateCalls = 0
	e.SummarizeCalls = 0
	e.SubtitlesCalls = 0
	e.CapacityCalls = 0
	e.SummaryRequests = nil
}

var _ engine.Engine = (*Engine)(nil)
