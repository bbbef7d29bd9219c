// Package api holds the JSON bodies of the Parlance HTTP API.
// The server encodes them and the proxy translator decodes them, so both
// sides of the wire agree on one definition.
package api

// DetectRequest is the body of POST /detect.
type DetectRequest struct {
	Text string `json:"text"`
	// Provider optionally names the backend the caller expects to serve
	// the request. It must match the configured provider when set.
	Provider string `json:"provider,omitempty"`
}

// DetectResponse is returned by POST /detect.
type DetectResponse struct {
	DetectedLanguage string `json:"detected_language"`
	Text             string `json:"text"`
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text     string `json:"text"`
	Target   string `json:"target"`
	Source   string `json:"source,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// TranslateResponse is returned by POST /translate.
type TranslateResponse struct {
	TranslatedText string  `json:"translated_text"`
	OriginalText   string  `json:"original_text"`
	SourceLanguage *string `json:"source_language"`
	TargetLanguage string  `json:"target_language"`
	Provider       string  `json:"provider"`
}

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// Language is a supported language entry.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LanguagesResponse is returned by GET /languages.
type LanguagesResponse struct {
	Languages []Language `json:"languages"`
}

// ErrorResponse carries a human-readable failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// PreferenceRequest is the body of PUT /api/preferences.
type PreferenceRequest struct {
	PreferredLanguage string `json:"preferred_language"`
}

// PreferenceResponse is returned by the preference endpoints.
type PreferenceResponse struct {
	PreferredLanguage string `json:"preferred_language"`
}
