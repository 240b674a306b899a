// Package language detects the dominant language of text and maps between
// the two-letter catalog codes used by the API and the three-letter codes
// reported by detectors.
package language

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	xlanguage "golang.org/x/text/language"
)

// Default is returned whenever a language cannot be determined.
const (
	Default       = "en"
	DefaultNative = "eng"
)

// minDetectLength is the shortest text handed to the detector.
const minDetectLength = 10

// Option is one supported language.
type Option struct {
	Code   string `json:"value"`
	Label  string `json:"label"`
	Native string `json:"code"`
}

var catalog = []Option{
	{Code: "en", Label: "English", Native: "eng"},
	{Code: "zh", Label: "Chinese", Native: "cmn"},
	{Code: "hi", Label: "Hindi", Native: "hin"},
	{Code: "es", Label: "Spanish", Native: "spa"},
	{Code: "ar", Label: "Arabic", Native: "ara"},
	{Code: "fr", Label: "French", Native: "fra"},
	{Code: "bn", Label: "Bengali", Native: "ben"},
	{Code: "pt", Label: "Portuguese", Native: "por"},
	{Code: "ru", Label: "Russian", Native: "rus"},
	{Code: "id", Label: "Indonesian", Native: "ind"},
	{Code: "ur", Label: "Urdu", Native: "urd"},
	{Code: "de", Label: "German", Native: "deu"},
	{Code: "ja", Label: "Japanese", Native: "jpn"},
}

var (
	byCode   = make(map[string]Option, len(catalog))
	byNative = make(map[string]Option, len(catalog))
)

func init() {
	for _, o := range catalog {
		byCode[o.Code] = o
		byNative[o.Native] = o
	}
}

// Catalog returns the supported languages in display order.
func Catalog() []Option {
	out := make([]Option, len(catalog))
	copy(out, catalog)
	return out
}

// Detector reports the three-letter code of the dominant language of text.
// ok is false when the detector cannot decide.
type Detector interface {
	Detect(text string) (native string, ok bool)
}

// Classifier wraps a Detector with the catalog mapping and fallbacks.
type Classifier struct {
	detector Detector
	logger   *slog.Logger
}

// NewClassifier creates a Classifier over detector.
func NewClassifier(detector Detector, logger *slog.Logger) *Classifier {
	return &Classifier{
		detector: detector,
		logger:   logger,
	}
}

// Detect returns the catalog code of text's dominant language. Short text,
// undetermined results and languages outside the catalog all yield Default.
func (c *Classifier) Detect(text string) string {
	if utf8.RuneCountInString(text) < minDetectLength {
		c.logger.Debug("Text too short for language detection, using default",
			"length", utf8.RuneCountInString(text),
		)
		return Default
	}

	native, ok := c.detector.Detect(text)
	if !ok {
		c.logger.Debug("Language detection undetermined, using default")
		return Default
	}

	return FromNative(native)
}

// DetectAndNormalize detects text's language and normalizes the result.
func (c *Classifier) DetectAndNormalize(text string) string {
	return Normalize(c.Detect(text))
}

// Label returns the display name for a two- or three-letter code.
func Label(code string) string {
	if code == "" {
		return "Select language"
	}
	if o, ok := byCode[code]; ok {
		return o.Label
	}
	if o, ok := byNative[code]; ok {
		return o.Label
	}
	return "Unknown"
}

// ToNative maps a catalog code to its three-letter code, defaulting to "eng".
func ToNative(code string) string {
	if o, ok := byCode[code]; ok {
		return o.Native
	}
	return DefaultNative
}

// FromNative maps a three-letter code to its catalog code, defaulting to "en".
func FromNative(native string) string {
	if o, ok := byNative[native]; ok {
		return o.Code
	}
	return Default
}

// Supported reports whether code is a catalog code.
func Supported(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Normalize maps any language identifier to a catalog code. It accepts
// catalog codes, three-letter codes and BCP 47 tags such as "pt-BR";
// anything else yields Default.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Default
	}
	if Supported(code) {
		return code
	}
	if o, ok := byNative[code]; ok {
		return o.Code
	}

	tag, err := xlanguage.Parse(code)
	if err != nil {
		return Default
	}
	base, _ := tag.Base()
	if Supported(base.String()) {
		return base.String()
	}
	return Default
}
