// Package report renders stored artifacts into downloadable documents.
//
// A Renderer is chosen by Format. Plain text keeps the artifact's own
// extension (.srt for subtitles); PDF lays the content out on A4 pages.
package report

import (
	"context"
	"io"
	"strings"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// Format is an export document format.
type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format string. Empty means text.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, true
	case FormatPDF:
		return FormatPDF, true
	default:
		return "", false
	}
}

// =============================================================================
// Renderer Interface
// =============================================================================

// Renderer writes an artifact in one format.
type Renderer interface {
	// Render writes a to w and returns the number of bytes written.
	Render(ctx context.Context, a domain.StoredArtifact, w io.Writer) (int64, error)

	// Extension returns the file extension for a, including the dot.
	Extension(a domain.StoredArtifact) string
}

// For returns the renderer for f.
func For(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFRenderer()
	}
	return TextRenderer{}
}

// TextRenderer writes the artifact content unchanged.
type TextRenderer struct{}

func (TextRenderer) Render(ctx context.Context, a domain.StoredArtifact, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, a.Content)
	return int64(n), err
}

func (TextRenderer) Extension(a domain.StoredArtifact) string {
	return a.Extension()
}

// =============================================================================
// Styling
// =============================================================================

// palette is the document color scheme.
var palette = struct {
	Header   string
	TextDark string
	Muted    string
	Border   string
}{
	Header:   "#1E3A5F",
	TextDark: "#1F2937",
	Muted:    "#6B7280",
	Border:   "#E5E7EB",
}

// kindTitles are document headings per artifact kind.
var kindTitles = map[domain.ArtifactKind]string{
	domain.ArtifactSubtitles:   "Subtitles",
	domain.ArtifactTranscript:  "Transcription",
	domain.ArtifactSummary:     "Summary",
	domain.ArtifactTranslation: "Translation",
}

// Title returns the document heading for an artifact kind.
func Title(kind domain.ArtifactKind) string {
	if t, ok := kindTitles[kind]; ok {
		return t
	}
	return "Document"
}

// HexToRGB converts a hex color string (e.g. "#1E3A5F") to RGB values.
func HexToRGB(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	return hexToDec(hex[0:2]), hexToDec(hex[2:4]), hexToDec(hex[4:6])
}

func hexToDec(hex string) int {
	var n int
	for _, c := range strings.ToLower(hex) {
		n *= 16
		switch {
		case c >= '0' && c <= '9':
			n += int(c - '0')
		case c >= 'a' && c <= 'f':
			n += int(c-'a') + 10
		}
	}
	return n
}
