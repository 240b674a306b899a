package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// nativeAliases maps lingua's ISO 639-3 codes onto the catalog's native codes
// where the two disagree.
var nativeAliases = map[string]string{
	"zho": "cmn",
}

// LinguaDetector detects the dominant language of text with lingua-go.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over every spoken language lingua knows,
// so text outside the catalog reports its own code and maps to Default.
// A positive minRelativeDistance makes ambiguous text come back undetermined.
func NewLinguaDetector(minRelativeDistance float64) *LinguaDetector {
	builder := lingua.NewLanguageDetectorBuilder().FromAllSpokenLanguages()
	if minRelativeDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(minRelativeDistance)
	}

	return &LinguaDetector{detector: builder.Build()}
}

func (d *LinguaDetector) Detect(text string) (string, bool) {
	l, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return nativeCode(l), true
}

func nativeCode(l lingua.Language) string {
	code := strings.ToLower(l.IsoCode639_3().String())
	if alias, ok := nativeAliases[code]; ok {
		return alias
	}
	return code
}
