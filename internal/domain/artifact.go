package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ArtifactKind names the type of generated output.
type ArtifactKind string

const (
	ArtifactSubtitles   ArtifactKind = "subtitles"
	ArtifactTranscript  ArtifactKind = "transcription"
	ArtifactSummary     ArtifactKind = "summary"
	ArtifactTranslation ArtifactKind = "translation"
)

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactSubtitles, ArtifactTranscript, ArtifactSummary, ArtifactTranslation:
		return true
	default:
		return false
	}
}

// StoredArtifact is a generated output kept in an identity's history.
type StoredArtifact struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Kind      ArtifactKind `json:"type"`
	Content   string       `json:"content"`
	FileName  string       `json:"file_name"`
	ByteSize  int64        `json:"file_size"`
	CreatedAt time.Time    `json:"timestamp"`
}

// NewArtifact builds an artifact record for owner created at now.
// ByteSize follows the content length in characters.
func NewArtifact(owner string, kind ArtifactKind, content string, now time.Time) StoredArtifact {
	now = now.UTC()
	return StoredArtifact{
		ID:        ArtifactID(owner, kind, now),
		OwnerID:   owner,
		Kind:      kind,
		Content:   content,
		FileName:  fmt.Sprintf("%s_%s", kind, now.Format(DayLayout)),
		ByteSize:  int64(utf8.RuneCountInString(content)),
		CreatedAt: now,
	}
}

// ArtifactID returns the key for an artifact: owner, kind and timestamp.
func ArtifactID(owner string, kind ArtifactKind, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", owner, kind, at.UTC().Format(time.RFC3339Nano))
}

// OwnedBy reports whether identity owns the artifact.
func (a StoredArtifact) OwnedBy(identity string) bool {
	return a.OwnerID == identity
}

// Extension returns the file extension used when exporting the artifact.
func (a StoredArtifact) Extension() string {
	if a.Kind == ArtifactSubtitles {
		return ".srt"
	}
	return ".txt"
}
