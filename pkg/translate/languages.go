package translate

import "github.com/dasmlab/parlance/pkg/api"

// DefaultLanguage is used wherever a language cannot be determined.
const DefaultLanguage = "en"

// supportedLanguages is the list served by GET /languages.
var supportedLanguages = []api.Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "hi", Name: "Hindi"},
	{Code: "ne", Name: "Nepali"},
	{Code: "ja", Name: "Japanese"},
	{Code: "zh", Name: "Chinese (Simplified)"},
	{Code: "ar", Name: "Arabic"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "ko", Name: "Korean"},
	{Code: "nl", Name: "Dutch"},
	{Code: "pl", Name: "Polish"},
	{Code: "tr", Name: "Turkish"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "th", Name: "Thai"},
	{Code: "id", Name: "Indonesian"},
}

// regionalCodes are the region-qualified codes providers translate
// differently from the bare language. Google and NLLB both split Chinese
// into Simplified and Traditional.
var regionalCodes = map[string]bool{
	"zh-CN": true,
	"zh-TW": true,
}

// Languages returns a copy of the supported language list.
func Languages() []api.Language {
	out := make([]api.Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

func languageCodes() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for _, l := range supportedLanguages {
		codes = append(codes, l.Code)
	}
	return codes
}
