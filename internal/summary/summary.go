// Package summary produces summaries through the processing engine, with
// sampling for long input, a validity check on every attempt and an
// extractive fallback when every attempt fails.
package summary

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/engine"
	"github.com/ankurclub/clever-video-summarizer/internal/translate"
)

const (
	// MaxTextLength is the longest text sent to the engine unsampled.
	MaxTextLength = 25000

	// MaxAttempts is the number of engine attempts before falling back.
	MaxAttempts = 3

	sampleMarker = "\n\n[...]\n\n"

	// ExtractiveMarker appears in fallback output and is rejected if the
	// engine echoes it back.
	ExtractiveMarker = "This is an extractive summary as our AI summarizer encountered difficulty"
)

const (
	longSuccessNote = "\n\n(Note: This summary represents key points from selected portions of the content " +
		"as the original was too long to process in full. The summary includes content from the beginning, " +
		"middle, and end sections.)"
	longFallbackNote = "\n\n(Note: This is an extractive summary generated from key portions of your content, " +
		"as the full content was too long to process completely.)"
	fallbackNote = "\n\n(Note: This is an alternative summary generated due to processing limitations " +
		"with the original content.)"
)

var (
	repetitivePatterns = []string{"rifle rifle", "quad quad", "nat nat", "specialization specialization"}
	sentenceEnd        = regexp.MustCompile(`[.!?]+`)
)

// Engine runs one summarization attempt.
type Engine interface {
	Summarize(ctx context.Context, req engine.SummaryRequest) (string, error)
}

// Result is a finished summary.
type Result struct {
	Text        string `json:"summary"`
	Attempts    int    `json:"attempts"`
	Extractive  bool   `json:"extractive"`
	LongContent bool   `json:"long_content"`
}

// Summarizer drives summary attempts against an Engine.
type Summarizer struct {
	engine Engine
	logger *slog.Logger
}

// New creates a Summarizer.
func New(e Engine, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		engine: e,
		logger: logger,
	}
}

// Summarize asks the engine for a summary up to MaxAttempts times and falls
// back to an extractive summary when no attempt yields valid text. Engine
// failures never fail the call; only empty input and cancellation do.
func (s *Summarizer) Summarize(ctx context.Context, text string) (Result, error) {
	const op = "summary.summarize"

	if strings.TrimSpace(text) == "" {
		return Result{}, domain.Invalid(op, "No text provided for summarization")
	}

	text = norm.NFC.String(text)
	input, long := Sample(text)

	s.logger.Debug("Summarizing text",
		"length", utf8.RuneCountInString(text),
		"sample_length", utf8.RuneCountInString(input),
		"long_content", long,
	)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		out, err := s.engine.Summarize(ctx, engine.SummaryRequest{
			Text:          input,
			Attempt:       attempt,
			Aggressive:    attempt > 1,
			IsLongContent: long,
		})
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, domain.Upstream(ctx.Err(), op, "summary request cancelled")
			}
			lastErr = err
			s.logger.Warn("Summary attempt failed",
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if !IsValid(out) {
			s.logger.Info("Summary attempt failed validation", "attempt", attempt)
			continue
		}

		if long {
			out = strings.TrimSpace(out) + longSuccessNote
		}
		return Result{Text: out, Attempts: attempt, LongContent: long}, nil
	}

	s.logger.Info("All summary attempts failed, using extractive summary",
		"long_content", long,
		"last_error", lastErr,
	)

	note := fallbackNote
	if long {
		note = longFallbackNote
	}
	return Result{
		Text:        strings.TrimSpace(Extractive(text, long)) + note,
		Attempts:    MaxAttempts,
		Extractive:  true,
		LongContent: long,
	}, nil
}

// Sample returns text unchanged when it fits MaxTextLength. Longer text is
// reduced to its beginning, middle and end, and long is true.
func Sample(text string) (sample string, long bool) {
	runes := []rune(text)
	n := len(runes)
	if n <= MaxTextLength {
		return text, false
	}

	head := MaxTextLength * 6 / 10
	part := MaxTextLength * 2 / 10
	midStart := n/2 - part

	return string(runes[:head]) +
		sampleMarker + string(runes[midStart:midStart+part]) +
		sampleMarker + string(runes[n-part:]), true
}

// IsValid rejects degenerate engine output: known repetition artifacts,
// fewer than two sentences or fifteen words, low word variety, or an echoed
// extractive note.
func IsValid(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range repetitivePatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}

	words := strings.Fields(lower)
	if len(sentenceEnd.FindAllStringIndex(text, -1)) < 2 || len(words) < 15 {
		return false
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	if float64(len(unique))/float64(len(words)) < 0.25 {
		return false
	}

	return !strings.Contains(text, ExtractiveMarker)
}

// Extractive picks sentences from the beginning, middle and end of text:
// up to 20 sentences, or 40 for long content.
func Extractive(text string, long bool) string {
	sentences := translate.SplitSentences(text)
	if len(sentences) < 3 {
		return text
	}

	limit := 20
	if long {
		limit = 40
	}
	n := min(len(sentences), limit)

	beginCount := n * 4 / 10
	midStart := len(sentences) * 4 / 10
	midCount := n * 2 / 10
	endStart := max(len(sentences)-n*4/10, midStart+midCount)

	picked := make([]string, 0, n)
	picked = append(picked, sentences[:beginCount]...)
	picked = append(picked, sentences[midStart:midStart+midCount]...)
	picked = append(picked, sentences[endStart:]...)
	return strings.Join(picked, " ")
}
