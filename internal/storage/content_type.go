package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// Content types of exported artifacts.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeSRT  = "application/x-subrip"
	ContentTypeVTT  = "text/vtt; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

var exportTypes = map[string]string{
	".txt": ContentTypeText,
	".srt": ContentTypeSRT,
	".vtt": ContentTypeVTT,
	".pdf": ContentTypePDF,
}

// DetectContentType picks a MIME type for key. An explicit type wins; then
// the export table, then the mime package, then octet-stream.
func DetectContentType(provided, key string) string {
	if provided != "" {
		return provided
	}

	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := exportTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
