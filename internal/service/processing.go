package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/engine"
	"github.com/ankurclub/clever-video-summarizer/internal/language"
	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
	"github.com/ankurclub/clever-video-summarizer/internal/ratewindow"
	"github.com/ankurclub/clever-video-summarizer/internal/subtitle"
	"github.com/ankurclub/clever-video-summarizer/internal/summary"
	"github.com/ankurclub/clever-video-summarizer/internal/translate"
)

// releaseTimeout bounds the counter update that undoes a reservation.
const releaseTimeout = 5 * time.Second

// RateMonitor is the part of ratewindow.Monitor the processor needs.
type RateMonitor interface {
	CheckRequestAllowed(ctx context.Context, identity string, kind domain.RequestKind) (ratewindow.Decision, error)
	IsUnusualPattern(ctx context.Context, identity string) (bool, error)
}

// ProcessingConfig tunes the processing pipeline.
type ProcessingConfig struct {
	// BlockUnusual rejects requests flagged by the pattern classifier.
	BlockUnusual bool

	// CheckCapacity asks the engine for its load before each upload.
	CheckCapacity bool
}

// Processor runs a request through the gates, the engine and the
// post-processing steps.
//
// Gate order: entitlement, size and quota, rate window, unusual pattern,
// engine capacity, quota reservation. The reservation re-checks the quota
// and counts the upload in one locked step, so concurrent requests cannot
// overrun a ceiling. The engine call runs with no per-identity lock held and
// the reservation is released when it fails.
type Processor struct {
	policy     PolicyService
	quota      QuotaService
	results    ResultService
	rate       RateMonitor
	engine     engine.Engine
	translator *translate.Translator
	summarizer *summary.Summarizer
	classifier *language.Classifier
	cfg        ProcessingConfig
	logger     *slog.Logger
}

// ProcessorDeps groups the collaborators of a Processor.
type ProcessorDeps struct {
	Policy     PolicyService
	Quota      QuotaService
	Results    ResultService
	Rate       RateMonitor
	Engine     engine.Engine
	Translator *translate.Translator
	Summarizer *summary.Summarizer
	Classifier *language.Classifier
}

// NewProcessor creates a Processor.
func NewProcessor(deps ProcessorDeps, cfg ProcessingConfig, logger *slog.Logger) *Processor {
	return &Processor{
		policy:     deps.Policy,
		quota:      deps.Quota,
		results:    deps.Results,
		rate:       deps.Rate,
		engine:     deps.Engine,
		translator: deps.Translator,
		summarizer: deps.Summarizer,
		classifier: deps.Classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// =============================================================================
// Results
// =============================================================================

// TranscriptionInput is an uploaded media file.
type TranscriptionInput struct {
	File     io.Reader
	FileName string
	Size     int64
	Kind     domain.FileKind
}

// TranscriptionResult is the output of Transcribe.
type TranscriptionResult struct {
	Text          string                 `json:"transcription"`
	Language      string                 `json:"language"`
	LanguageLabel string                 `json:"language_label"`
	Usage         domain.UsageCounters   `json:"usage"`
	Artifact      *domain.StoredArtifact `json:"artifact,omitempty"`
}

// SubtitlesResult is the output of Subtitles.
type SubtitlesResult struct {
	VTT        string                 `json:"vtt"`
	SRT        string                 `json:"srt"`
	Transcript string                 `json:"transcript"`
	Language   string                 `json:"language"`
	Usage      domain.UsageCounters   `json:"usage"`
	Artifact   *domain.StoredArtifact `json:"artifact,omitempty"`
}

// TranslationResult is the output of Translate.
type TranslationResult struct {
	translate.Result
	Artifact *domain.StoredArtifact `json:"artifact,omitempty"`
}

// SummaryResult is the output of Summarize.
type SummaryResult struct {
	summary.Result
	Artifact *domain.StoredArtifact `json:"artifact,omitempty"`
}

// RateStatus answers a standalone rate check.
type RateStatus struct {
	ratewindow.Decision
	Unusual bool `json:"unusual"`
}

// =============================================================================
// Operations
// =============================================================================

// Transcribe gates an upload, sends it to the engine and stores the text.
func (p *Processor) Transcribe(ctx context.Context, id domain.Identity, in TranscriptionInput) (TranscriptionResult, error) {
	const op = "processor.transcribe"

	if in.File == nil {
		return TranscriptionResult{}, domain.Invalid(op, "No file provided")
	}
	if err := p.policy.AttemptProcess(ctx, id, domain.OpTranscription); err != nil {
		return TranscriptionResult{}, err
	}
	if err := p.policy.AttemptUpload(ctx, id, in.Size, in.Kind); err != nil {
		return TranscriptionResult{}, err
	}
	if err := p.admit(ctx, op, id, domain.RequestUpload); err != nil {
		return TranscriptionResult{}, err
	}
	usage, err := p.policy.ReserveQuota(ctx, id)
	if err != nil {
		return TranscriptionResult{}, err
	}

	start := time.Now()
	text, err := p.engine.Transcribe(ctx, in.File, in.FileName)
	if err != nil {
		metrics.EngineFailed("transcribe", time.Since(start))
		p.release(ctx, op, id, usage)
		return TranscriptionResult{}, p.upstream(ctx, op, id, err)
	}
	metrics.EngineCompleted("transcribe", time.Since(start))

	lang := p.classifier.DetectAndNormalize(text)
	return TranscriptionResult{
		Text:          text,
		Language:      lang,
		LanguageLabel: language.Label(lang),
		Usage:         usage,
		Artifact:      p.keep(ctx, id, text, domain.ArtifactTranscript),
	}, nil
}

// Subtitles fetches the subtitles of a hosted video and converts them to SRT.
func (p *Processor) Subtitles(ctx context.Context, id domain.Identity, videoURL string) (SubtitlesResult, error) {
	const op = "processor.subtitles"

	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return SubtitlesResult{}, domain.Invalid(op, "Please enter a video URL")
	}
	if err := p.policy.AttemptProcess(ctx, id, domain.OpSubtitles); err != nil {
		return SubtitlesResult{}, err
	}
	if err := p.policy.CheckQuota(ctx, id); err != nil {
		return SubtitlesResult{}, err
	}
	if err := p.admit(ctx, op, id, domain.RequestVideo); err != nil {
		return SubtitlesResult{}, err
	}
	usage, err := p.policy.ReserveQuota(ctx, id)
	if err != nil {
		return SubtitlesResult{}, err
	}

	start := time.Now()
	vtt, err := p.engine.Subtitles(ctx, videoURL)
	if err != nil {
		metrics.EngineFailed("subtitles", time.Since(start))
		p.release(ctx, op, id, usage)
		return SubtitlesResult{}, p.upstream(ctx, op, id, err)
	}
	metrics.EngineCompleted("subtitles", time.Since(start))

	srt := subtitle.VTTToSRT(vtt)
	transcript := subtitle.Transcript(vtt)
	return SubtitlesResult{
		VTT:        vtt,
		SRT:        srt,
		Transcript: transcript,
		Language:   p.classifier.DetectAndNormalize(transcript),
		Usage:      usage,
		Artifact:   p.keep(ctx, id, srt, domain.ArtifactSubtitles),
	}, nil
}

// Translate translates text for tiers entitled to translation.
func (p *Processor) Translate(ctx context.Context, id domain.Identity, text, targetLang string) (TranslationResult, error) {
	const op = "processor.translate"

	if err := p.policy.AttemptProcess(ctx, id, domain.OpTranslation); err != nil {
		return TranslationResult{}, err
	}

	start := time.Now()
	res, err := p.translator.Translate(ctx, text, targetLang)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUPSTREAM {
			metrics.EngineFailed("translate", time.Since(start))
			p.logger.Warn("translation failed", "error", err, "op", op, "identity", id.Key)
		}
		return TranslationResult{}, err
	}
	metrics.EngineCompleted("translate", time.Since(start))
	metrics.TranslationChunks.Observe(float64(res.Chunks))

	return TranslationResult{
		Result:   res,
		Artifact: p.keep(ctx, id, res.Text, domain.ArtifactTranslation),
	}, nil
}

// Summarize summarizes text for tiers entitled to summaries.
func (p *Processor) Summarize(ctx context.Context, id domain.Identity, text string) (SummaryResult, error) {
	if err := p.policy.AttemptProcess(ctx, id, domain.OpSummary); err != nil {
		return SummaryResult{}, err
	}

	start := time.Now()
	res, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return SummaryResult{}, err
	}
	metrics.EngineCompleted("summarize", time.Since(start))
	if res.Extractive {
		metrics.SummaryFallbacks.Inc()
	}

	return SummaryResult{
		Result:   res,
		Artifact: p.keep(ctx, id, res.Text, domain.ArtifactSummary),
	}, nil
}

// Capacity reports the engine's load.
func (p *Processor) Capacity(ctx context.Context) (engine.Capacity, error) {
	const op = "processor.capacity"

	c, err := p.engine.CheckCapacity(ctx)
	if err != nil {
		return engine.Capacity{}, domain.Upstream(err, op, "Unable to check server capacity")
	}
	return c, nil
}

// CheckRate runs the rate window for kind and reports the pattern signal.
// It records the request like any gated call.
func (p *Processor) CheckRate(ctx context.Context, id domain.Identity, kind domain.RequestKind) (RateStatus, error) {
	d, err := p.rate.CheckRequestAllowed(ctx, id.Key, kind)
	if err != nil {
		return RateStatus{}, err
	}

	unusual, err := p.rate.IsUnusualPattern(ctx, id.Key)
	if err != nil {
		return RateStatus{}, err
	}
	if unusual {
		metrics.UnusualPatterns.Inc()
	}
	return RateStatus{Decision: d, Unusual: unusual}, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// admit applies the rate window, the pattern classifier and the capacity
// check.
func (p *Processor) admit(ctx context.Context, op string, id domain.Identity, kind domain.RequestKind) error {
	d, err := p.rate.CheckRequestAllowed(ctx, id.Key, kind)
	if err != nil {
		return err
	}
	if !d.Allowed {
		metrics.GateDenied("rate", "cooldown")
		return d.Err(op)
	}
	metrics.GateAllowed("rate")

	unusual, err := p.rate.IsUnusualPattern(ctx, id.Key)
	if err != nil {
		return err
	}
	if unusual {
		metrics.UnusualPatterns.Inc()
		p.logger.Warn("Unusual request pattern",
			"identity", id.Key,
			"kind", kind,
			"blocked", p.cfg.BlockUnusual,
		)
		if p.cfg.BlockUnusual {
			metrics.GateDenied("rate", "unusual")
			return domain.AnomalyDetected(op)
		}
	}

	if !p.cfg.CheckCapacity {
		return nil
	}

	c, err := p.engine.CheckCapacity(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.Upstream(err, op, "request cancelled")
		}
		p.logger.Warn("capacity check failed, proceeding", "error", err, "op", op)
		return nil
	}
	if !c.Available {
		metrics.GateDenied("capacity", "busy")
		return domain.Errorf(domain.EUNAVAILABLE, op,
			"Our servers are currently busy. There are %d files in the queue. Please try again in a few minutes.",
			c.QueueLength)
	}
	return nil
}

// upstream wraps an engine failure, keeping its message.
func (p *Processor) upstream(ctx context.Context, op string, id domain.Identity, err error) error {
	level := slog.LevelWarn
	if !engine.IsTimeout(err) && !errors.Is(err, engine.EEngineRejected) && !errors.Is(err, engine.EEngineNotFound) {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "engine call failed",
		"error", err,
		"op", op,
		"identity", id.Key,
	)

	msg := err.Error()
	if engine.IsTimeout(err) {
		msg = fmt.Sprintf("The request timed out. %s", msg)
	}
	return domain.Upstream(err, op, msg)
}

// release hands back a reserved upload after the engine failed. It uses a
// fresh context so a cancelled request still gets its quota back.
func (p *Processor) release(ctx context.Context, op string, id domain.Identity, reserved domain.UsageCounters) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := p.quota.ReleaseUpload(ctx, id.Key, reserved); err != nil {
		p.logger.Error("failed to release reserved upload", "error", err, "op", op, "identity", id.Key)
	}
}

// keep stores an artifact for entitled tiers. A failed save is logged and
// does not fail the operation that produced the content.
func (p *Processor) keep(ctx context.Context, id domain.Identity, content string, kind domain.ArtifactKind) *domain.StoredArtifact {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	a, err := p.results.Put(ctx, id, content, kind)
	if err != nil {
		p.logger.Warn("failed to keep artifact", "error", err, "identity", id.Key, "type", kind)
		return nil
	}
	return a
}
