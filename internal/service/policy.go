package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PolicyService decides whether a plan allows an upload or a processing step.
// A nil error means allowed; refusals are policy_denied errors carrying a
// *domain.Denial.
type PolicyService interface {
	// AttemptUpload checks the size ceiling for kind, then the monthly and
	// daily quotas.
	AttemptUpload(ctx context.Context, id domain.Identity, size int64, kind domain.FileKind) error

	// CheckQuota checks only the monthly and daily quotas.
	CheckQuota(ctx context.Context, id domain.Identity) error

	// ReserveQuota counts one upload against the monthly and daily quotas,
	// refusing atomically when either is exhausted. The returned counters
	// include the reservation.
	ReserveQuota(ctx context.Context, id domain.Identity) (domain.UsageCounters, error)

	// AttemptProcess checks that the tier is entitled to op.
	AttemptProcess(ctx context.Context, id domain.Identity, op domain.Operation) error
}

// =============================================================================
// Implementation
// =============================================================================

type policyService struct {
	quota  QuotaService
	logger *slog.Logger
}

// NewPolicyService creates a PolicyService over quota.
func NewPolicyService(quota QuotaService, logger *slog.Logger) PolicyService {
	return &policyService{
		quota:  quota,
		logger: logger,
	}
}

// AttemptUpload gates an upload of size bytes.
func (s *policyService) AttemptUpload(ctx context.Context, id domain.Identity, size int64, kind domain.FileKind) error {
	const op = "policy.attempt_upload"

	if size < 0 {
		return domain.Invalid(op, "file size must not be negative")
	}

	if !domain.CheckFileSize(id.Tier, kind, size) {
		limit := domain.LimitAudio
		if kind == domain.FileVideo {
			limit = domain.LimitVideo
		}
		ceiling := domain.LimitsFor(id.Tier).MaxBytes(kind)
		reason := fmt.Sprintf("The %s file (%s) exceeds the %s limit on the %s plan.",
			kind, domain.FormatFileSize(size), domain.FormatFileSize(ceiling), id.Tier.DisplayName())
		return s.deny(op, id, limit, reason, size)
	}

	return s.checkQuota(ctx, op, id)
}

// CheckQuota gates work that counts as an upload but has no file size.
func (s *policyService) CheckQuota(ctx context.Context, id domain.Identity) error {
	return s.checkQuota(ctx, "policy.check_quota", id)
}

func (s *policyService) checkQuota(ctx context.Context, op string, id domain.Identity) error {
	limits := domain.LimitsFor(id.Tier)

	c, err := s.quota.CurrentUsage(ctx, id.Key)
	if err != nil {
		return err
	}

	switch {
	case domain.ReachedCount(c.MonthlyCount, limits.MonthlyUploadLimit):
		return s.denyQuota(op, id, domain.LimitMonthly, c)
	case domain.ReachedCount(c.DailyCount, limits.DailyUploadLimit):
		return s.denyQuota(op, id, domain.LimitDaily, c)
	}

	metrics.GateAllowed("quota")
	return nil
}

// ReserveQuota counts an upload unless a quota is exhausted.
func (s *policyService) ReserveQuota(ctx context.Context, id domain.Identity) (domain.UsageCounters, error) {
	const op = "policy.reserve_quota"

	c, hit, err := s.quota.ReserveUpload(ctx, id.Key, id.Tier)
	if err != nil {
		return domain.UsageCounters{}, err
	}
	if hit != "" {
		return domain.UsageCounters{}, s.denyQuota(op, id, hit, c)
	}
	return c, nil
}

func (s *policyService) denyQuota(op string, id domain.Identity, limit domain.LimitKind, c domain.UsageCounters) error {
	limits := domain.LimitsFor(id.Tier)
	if limit == domain.LimitMonthly {
		reason := fmt.Sprintf("You've reached the limit of %d files per month on the %s plan.",
			limits.MonthlyUploadLimit, id.Tier.DisplayName())
		return s.deny(op, id, domain.LimitMonthly, reason, int64(c.MonthlyCount))
	}
	reason := fmt.Sprintf("You've reached the limit of %d %s per day on the %s plan.",
		limits.DailyUploadLimit, plural(limits.DailyUploadLimit, "file", "files"), id.Tier.DisplayName())
	return s.deny(op, id, domain.LimitDaily, reason, int64(c.DailyCount))
}

// AttemptProcess gates a processing step.
func (s *policyService) AttemptProcess(ctx context.Context, id domain.Identity, operation domain.Operation) error {
	const op = "policy.attempt_process"

	if domain.LimitsFor(id.Tier).Entitled(operation) {
		metrics.GateAllowed("feature")
		return nil
	}

	reason := fmt.Sprintf("%s is not available on the %s plan.", featureName(operation), id.Tier.DisplayName())
	return s.deny(op, id, domain.LimitFeature, reason, 0)
}

func (s *policyService) deny(op string, id domain.Identity, limit domain.LimitKind, reason string, used int64) error {
	gate := "quota"
	switch limit {
	case domain.LimitAudio, domain.LimitVideo:
		gate = "size"
	case domain.LimitFeature:
		gate = "feature"
	}
	metrics.GateDenied(gate, string(limit))

	s.logger.Info("Plan limit reached",
		"identity", id.Key,
		"tier", id.Tier,
		"limit", limit,
		"used", used,
	)
	return domain.PolicyDenied(op, id.Tier, limit, reason)
}

func featureName(op domain.Operation) string {
	switch op {
	case domain.OpSummary:
		return "Summarization"
	case domain.OpTranslation:
		return "Translation"
	case domain.OpSubtitles:
		return "Subtitle extraction"
	default:
		return "Transcription"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
