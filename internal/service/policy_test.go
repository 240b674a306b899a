package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

const mb = 1024 * 1024

func newTestPolicy(t *testing.T) (PolicyService, QuotaService) {
	t.Helper()
	q, _ := newTestQuota(t)
	return NewPolicyService(q, testLogger()), q
}

func TestPolicy_FreeDailyLimitDenied(t *testing.T) {
	ctx := context.Background()
	p, q := newTestPolicy(t)
	id := domain.Identity{Key: "anon:abc", Tier: domain.PlanFree, Anonymous: true}

	require.NoError(t, p.AttemptUpload(ctx, id, 1*mb, domain.FileAudio))
	_, err := q.RecordUpload(ctx, id.Key, id.Tier)
	require.NoError(t, err)

	err = p.AttemptUpload(ctx, id, 1*mb, domain.FileAudio)
	require.Error(t, err)
	assert.Equal(t, domain.EPOLICY, domain.ErrorCode(err))
	assert.Contains(t, domain.ErrorMessage(err), "1 file per day on the Free plan")
	assert.Contains(t, domain.ErrorMessage(err), "Upgrade to Pro to process up to 5 files per day.")

	d, ok := domain.DenialOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LimitDaily, d.Limit)
	assert.Equal(t, domain.PlanFree, d.Tier)
}

func TestPolicy_MonthlyCheckedBeforeDaily(t *testing.T) {
	ctx := context.Background()
	p, q := newTestPolicy(t)
	id := domain.Identity{Key: "u", Tier: domain.PlanFree}

	for i := 0; i < 5; i++ {
		require.NoError(t, q.IncrementMonthly(ctx, id.Key))
	}

	err := p.CheckQuota(ctx, id)
	d, ok := domain.DenialOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LimitMonthly, d.Limit)
	assert.Equal(t, "Upgrade to Pro for up to 50 files per month.", d.Upgrade)
}

func TestPolicy_FileSize(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPolicy(t)

	tests := []struct {
		name  string
		tier  domain.PlanTier
		size  int64
		kind  domain.FileKind
		limit domain.LimitKind
	}{
		{"free audio over 10MB", domain.PlanFree, 10*mb + 1, domain.FileAudio, domain.LimitAudio},
		{"free video over 50MB", domain.PlanFree, 60 * mb, domain.FileVideo, domain.LimitVideo},
		{"pro video over 200MB", domain.PlanPro, 201 * mb, domain.FileVideo, domain.LimitVideo},
		{"business audio over 200MB", domain.PlanBusiness, 201 * mb, domain.FileAudio, domain.LimitAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.AttemptUpload(ctx, domain.Identity{Key: "u", Tier: tt.tier}, tt.size, tt.kind)
			d, ok := domain.DenialOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.limit, d.Limit)
		})
	}

	assert.NoError(t, p.AttemptUpload(ctx, domain.Identity{Key: "u", Tier: domain.PlanFree}, 10*mb, domain.FileAudio))
	assert.Contains(t, domain.ErrorMessage(
		p.AttemptUpload(ctx, domain.Identity{Key: "u", Tier: domain.PlanFree}, 15*mb, domain.FileAudio)),
		"exceeds the 10 MB limit on the Free plan")
}

func TestPolicy_NegativeSize(t *testing.T) {
	p, _ := newTestPolicy(t)
	err := p.AttemptUpload(context.Background(), domain.Identity{Key: "u", Tier: domain.PlanPro}, -1, domain.FileAudio)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestPolicy_BusinessUnbounded(t *testing.T) {
	ctx := context.Background()
	p, q := newTestPolicy(t)
	id := domain.Identity{Key: "biz", Tier: domain.PlanBusiness}

	for i := 0; i < 60; i++ {
		_, err := q.RecordUpload(ctx, id.Key, id.Tier)
		require.NoError(t, err)
	}
	assert.NoError(t, p.AttemptUpload(ctx, id, 100*mb, domain.FileVideo))
}

func TestPolicy_AttemptProcess(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPolicy(t)

	tests := []struct {
		tier    domain.PlanTier
		op      domain.Operation
		allowed bool
	}{
		{domain.PlanFree, domain.OpSubtitles, true},
		{domain.PlanFree, domain.OpTranscription, true},
		{domain.PlanFree, domain.OpSummary, false},
		{domain.PlanFree, domain.OpTranslation, false},
		{domain.PlanPro, domain.OpSummary, true},
		{domain.PlanPro, domain.OpTranslation, true},
		{domain.PlanBusiness, domain.OpSummary, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+string(tt.op), func(t *testing.T) {
			err := p.AttemptProcess(ctx, domain.Identity{Key: "u", Tier: tt.tier}, tt.op)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			d, ok := domain.DenialOf(err)
			require.True(t, ok)
			assert.Equal(t, domain.LimitFeature, d.Limit)
		})
	}
}
