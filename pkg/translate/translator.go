package translate

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// Translator defines the interface for translation providers.
// This abstraction lets the service run against Google Cloud Translation,
// Hugging Face Inference or a Parlance proxy without knowing which one.
type Translator interface {
	// DetectLanguage returns the ISO 639-1 code of the language text is written in.
	DetectLanguage(ctx context.Context, text string) (string, error)

	// Translate translates text from source language to target language.
	// sourceLang may be empty, in which case the provider infers it.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// CheckHealth verifies that the provider is configured and operational.
	CheckHealth(ctx context.Context) error

	// SupportedLanguages returns the language codes this provider accepts.
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// LanguageMapper handles conversion between the codes callers send and the
// codes providers expect. Callers may send BCP 47 tags such as "fr-CA" or
// "en_US", while providers take ISO 639-1 codes like "fr" and "en".
type LanguageMapper struct{}

// NewLanguageMapper creates a new language mapper instance.
func NewLanguageMapper() *LanguageMapper {
	return &LanguageMapper{}
}

// ToBackendCode converts a caller language code to provider format.
// Examples:
//   - "EN" -> "en"
//   - "fr-CA" -> "fr"
//   - "zh_TW" -> "zh-TW"
//
// A region is kept only when providers distinguish it (see regionalCodes);
// otherwise the base language is returned. Codes that do not parse as a
// language tag are lowercased and cut at the first separator.
func (lm *LanguageMapper) ToBackendCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
		if full := tag.String(); regionalCodes[full] {
			return full
		}
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}

	lang := strings.ToLower(code)
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	return lang
}

// baseCode returns the language part of a code such as "zh-TW".
func baseCode(code string) string {
	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		return code[:idx]
	}
	return code
}
