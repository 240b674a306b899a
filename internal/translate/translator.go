package translate

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/language"
)

// charLimitMessage replaces engine errors caused by its per-request limit.
const charLimitMessage = "The translation API has a 5000 character limit per request. " +
	"The system attempted to chunk your text but still encountered an error. " +
	"Please try translating a smaller portion of text."

// ChunkTranslator translates a single chunk.
type ChunkTranslator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Options tunes chunk sizes.
type Options struct {
	SafeChunk   int
	HardCeiling int
}

// DefaultOptions returns the engine's limits.
func DefaultOptions() Options {
	return Options{SafeChunk: SafeChunk, HardCeiling: HardCeiling}
}

// Result is a finished translation.
type Result struct {
	Text       string `json:"translated_text"`
	TargetLang string `json:"target_lang"`
	Chunks     int    `json:"chunks"`
}

// Translator drives sequential chunk translations.
type Translator struct {
	engine ChunkTranslator
	opts   Options
	logger *slog.Logger
}

// NewTranslator creates a Translator. Zero option fields take defaults.
func NewTranslator(engine ChunkTranslator, opts Options, logger *slog.Logger) *Translator {
	if opts.SafeChunk <= 0 {
		opts.SafeChunk = SafeChunk
	}
	if opts.HardCeiling <= 0 {
		opts.HardCeiling = HardCeiling
	}
	return &Translator{
		engine: engine,
		opts:   opts,
		logger: logger,
	}
}

// Translate translates text into targetLang chunk by chunk, in order. The
// first failing chunk aborts the whole translation.
func (t *Translator) Translate(ctx context.Context, text, targetLang string) (Result, error) {
	const op = "translate.translate"

	if strings.TrimSpace(text) == "" {
		return Result{}, domain.Invalid(op, "No content provided for translation")
	}

	text = norm.NFC.String(text)
	target := language.Normalize(targetLang)
	chunks := Plan(text, t.opts.SafeChunk)

	t.logger.Debug("Translation planned",
		"length", runeLen(text),
		"chunks", len(chunks),
		"target_lang", target,
	)

	var out strings.Builder
	for i, c := range chunks {
		translated, err := t.translateChunk(ctx, c.Text, target)
		if err != nil {
			t.logger.Warn("Translation chunk failed",
				"chunk", i,
				"chunks", len(chunks),
				"target_lang", target,
				"error", err,
			)
			return Result{}, err
		}
		out.WriteString(c.Sep)
		out.WriteString(translated)
	}

	return Result{
		Text:       out.String(),
		TargetLang: target,
		Chunks:     len(chunks),
	}, nil
}

func (t *Translator) translateChunk(ctx context.Context, text, target string) (string, error) {
	const op = "translate.chunk"

	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if n := runeLen(text); n > t.opts.HardCeiling {
		t.logger.Warn("Translation chunk over ceiling, truncating",
			"length", n,
			"truncate_to", t.opts.SafeChunk,
		)
		text = truncateRunes(text, t.opts.SafeChunk)
	}
	if n := runeLen(text); n > t.opts.HardCeiling {
		return "", domain.ChunkBoundary(op, n, t.opts.HardCeiling)
	}

	translated, err := t.engine.Translate(ctx, text, target)
	if err != nil {
		if strings.Contains(err.Error(), "5000 characters") {
			return "", domain.Upstream(err, op, charLimitMessage)
		}
		return "", domain.Upstream(err, op, err.Error())
	}
	return translated, nil
}
