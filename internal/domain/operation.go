package domain

import "strings"

// Operation is a processing step a caller asks for after an upload.
type Operation string

const (
	OpSubtitles     Operation = "subtitles"
	OpTranscription Operation = "transcription"
	OpSummary       Operation = "summary"
	OpTranslation   Operation = "translation"
)

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpSubtitles, OpTranscription, OpSummary, OpTranslation:
		return op, true
	default:
		return "", false
	}
}

// Entitled reports whether limits grant op. Subtitles and transcription are
// available on every plan.
func (l PlanLimits) Entitled(op Operation) bool {
	switch op {
	case OpSummary:
		return l.AllowSummary
	case OpTranslation:
		return l.AllowTranslation
	default:
		return true
	}
}
