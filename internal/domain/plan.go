// Package domain contains core business types and interfaces.
//
// This file defines the plan catalog: tiers, their limits, and the upgrade
// hints shown when a limit is reached.
package domain

import (
	"math"
	"strconv"
	"strings"
)

// PlanTier identifies a pricing plan.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanBusiness PlanTier = "business"
)

// Unlimited marks an upload count with no ceiling.
const Unlimited = -1

// Tiers lists the plans from least to most generous.
var Tiers = []PlanTier{PlanFree, PlanPro, PlanBusiness}

// ParsePlanTier maps a plan name to a tier. Unknown names fall back to free.
func ParsePlanTier(s string) PlanTier {
	switch PlanTier(strings.ToLower(strings.TrimSpace(s))) {
	case PlanPro:
		return PlanPro
	case PlanBusiness:
		return PlanBusiness
	default:
		return PlanFree
	}
}

// DisplayName returns the capitalized plan name used in messages.
func (t PlanTier) DisplayName() string {
	switch t {
	case PlanPro:
		return "Pro"
	case PlanBusiness:
		return "Business"
	default:
		return "Free"
	}
}

// LimitKind names the limit that refused an operation.
type LimitKind string

const (
	LimitMonthly LimitKind = "monthly"
	LimitDaily   LimitKind = "daily"
	LimitAudio   LimitKind = "audio"
	LimitVideo   LimitKind = "video"
	LimitFeature LimitKind = "feature"
)

// FileKind is the media class of an upload.
type FileKind string

const (
	FileAudio FileKind = "audio"
	FileVideo FileKind = "video"
)

// ParseFileKind validates a file kind string.
func ParseFileKind(s string) (FileKind, bool) {
	switch FileKind(strings.ToLower(strings.TrimSpace(s))) {
	case FileAudio:
		return FileAudio, true
	case FileVideo:
		return FileVideo, true
	default:
		return "", false
	}
}

// PlanLimits holds the entitlements of one tier.
type PlanLimits struct {
	MonthlyUploadLimit  int   `json:"monthly_upload_limit"` // Unlimited (-1) for no ceiling
	DailyUploadLimit    int   `json:"daily_upload_limit"`   // Unlimited (-1) for no ceiling
	MaxAudioBytes       int64 `json:"max_audio_bytes"`
	MaxVideoBytes       int64 `json:"max_video_bytes"`
	AllowTranslation    bool  `json:"allow_translation"`
	AllowHistory        bool  `json:"allow_history"`
	AllowContentLibrary bool  `json:"allow_content_library"`
	AllowSummary        bool  `json:"allow_summary"`
}

const mb = 1024 * 1024

// planLimits is the single source of tier thresholds.
var planLimits = map[PlanTier]PlanLimits{
	PlanFree: {
		MonthlyUploadLimit: 5,
		DailyUploadLimit:   1,
		MaxAudioBytes:      10 * mb,
		MaxVideoBytes:      50 * mb,
	},
	PlanPro: {
		MonthlyUploadLimit: 50,
		DailyUploadLimit:   5,
		MaxAudioBytes:      50 * mb,
		MaxVideoBytes:      200 * mb,
		AllowTranslation:   true,
		AllowSummary:       true,
	},
	PlanBusiness: {
		MonthlyUploadLimit:  Unlimited,
		DailyUploadLimit:    Unlimited,
		MaxAudioBytes:       200 * mb,
		MaxVideoBytes:       500 * mb,
		AllowTranslation:    true,
		AllowHistory:        true,
		AllowContentLibrary: true,
		AllowSummary:        true,
	},
}

// LimitsFor returns the limits of a tier, defaulting to free for unknown tiers.
func LimitsFor(tier PlanTier) PlanLimits {
	if limits, ok := planLimits[tier]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// MaxBytes returns the size ceiling for a file kind.
func (l PlanLimits) MaxBytes(kind FileKind) int64 {
	if kind == FileAudio {
		return l.MaxAudioBytes
	}
	return l.MaxVideoBytes
}

// MonthlyUnbounded reports whether the monthly count has no ceiling.
func (l PlanLimits) MonthlyUnbounded() bool {
	return l.MonthlyUploadLimit == Unlimited
}

// DailyUnbounded reports whether the daily count has no ceiling.
func (l PlanLimits) DailyUnbounded() bool {
	return l.DailyUploadLimit == Unlimited
}

// ReachedCount reports whether used has hit limit. Unlimited never triggers.
func ReachedCount(used, limit int) bool {
	if limit == Unlimited {
		return false
	}
	return used >= limit
}

// Remaining returns how many uploads are left, or Unlimited.
func Remaining(used, limit int) int {
	if limit == Unlimited {
		return Unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// CheckFileSize reports whether size fits the tier's ceiling for kind.
func CheckFileSize(tier PlanTier, kind FileKind, size int64) bool {
	return size <= LimitsFor(tier).MaxBytes(kind)
}

// UpgradeMessage returns the next-step hint for a tier that hit a limit.
func UpgradeMessage(tier PlanTier, limit LimitKind) string {
	switch tier {
	case PlanFree:
		switch limit {
		case LimitMonthly:
			return "Upgrade to Pro for up to 50 files per month."
		case LimitDaily:
			return "Upgrade to Pro to process up to 5 files per day."
		case LimitAudio:
			return "Upgrade to Pro to upload audio files up to 50 MB."
		case LimitVideo:
			return "Upgrade to Pro to upload video files up to 200 MB."
		case LimitFeature:
			return "Upgrade to Pro for translation features."
		default:
			return "Upgrade to Pro for more features."
		}
	case PlanPro:
		switch limit {
		case LimitMonthly:
			return "Upgrade to Business for unlimited file processing."
		case LimitDaily:
			return "Upgrade to Business for unlimited daily processing."
		case LimitAudio:
			return "Upgrade to Business to upload audio files up to 200 MB."
		case LimitVideo:
			return "Upgrade to Business to upload video files up to 500 MB."
		case LimitFeature:
			return "Upgrade to Business for content library access and history."
		default:
			return "Upgrade to Business for unlimited features."
		}
	}
	return "You've reached the maximum limit for your plan. Please contact support for assistance."
}

// FormatFileSize renders a byte count using 1024-based units.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + " " + sizes[i]
}
