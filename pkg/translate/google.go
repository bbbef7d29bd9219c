package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultGoogleURL is the Google Cloud Translation v2 REST endpoint.
const DefaultGoogleURL = "https://translation.googleapis.com/language/translate/v2"

// GoogleClient implements the Translator interface using Google Cloud Translation.
// The API key travels in the x-goog-api-key header, never in the URL, so
// transport errors that quote the URL cannot leak it.
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGoogleClient creates a new Google Cloud Translation client.
// A missing apiKey is not an error here; every call reports it instead.
func NewGoogleClient(baseURL, apiKey string, httpClient *http.Client, logger *logrus.Logger) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultTimeout)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type googleDetectRequest struct {
	Q string `json:"q"`
}

type googleTranslateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
}

type googleDetection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type googleDetectResponse struct {
	Data struct {
		// Detections is [][]detection in the documented API, but some
		// deployments flatten it to []detection.
		Detections []json.RawMessage `json:"detections"`
	} `json:"data"`
}

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (c *GoogleClient) ensureKey() error {
	if c.apiKey == "" {
		return &ConfigurationError{Setting: "GOOGLE_API_KEY"}
	}
	return nil
}

func (c *GoogleClient) authHeader() http.Header {
	return http.Header{"X-Goog-Api-Key": {c.apiKey}}
}

// DetectLanguage detects the language of text.
func (c *GoogleClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	if err := c.ensureKey(); err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"text_length": len(text),
	}).Debug("Detecting language with Google")

	startTime := time.Now()
	resp, err := postJSON(ctx, c.httpClient, c.baseURL+"/detect", googleDetectRequest{Q: text}, c.authHeader())
	if err != nil {
		c.logger.WithError(err).Error("Detection request failed")
		return "", err
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Detection request completed")

	if !isSuccess(resp.StatusCode) {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
		}).Error("Detection request returned non-OK status")
		return "", newTransportError("Detect", resp.StatusCode, "")
	}

	var gResp googleDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode detection response")
		return "", &ParseError{Op: "Detect", Err: err}
	}

	lang := firstDetection(gResp.Data.Detections)
	if lang == "" {
		c.logger.Warn("Google returned no detection, using default language")
		lang = DefaultLanguage
	}
	return lang, nil
}

// firstDetection reads the first language from either the nested or the flat
// detections shape.
func firstDetection(detections []json.RawMessage) string {
	if len(detections) == 0 {
		return ""
	}
	var nested []googleDetection
	if err := json.Unmarshal(detections[0], &nested); err == nil {
		if len(nested) > 0 {
			return nested[0].Language
		}
		return ""
	}
	var flat googleDetection
	if err := json.Unmarshal(detections[0], &flat); err == nil {
		return flat.Language
	}
	return ""
}

// Translate translates text into targetLang. An empty sourceLang is omitted
// from the request so Google detects it.
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := c.ensureKey(); err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": len(text),
	}).Debug("Translating text with Google")

	payload := googleTranslateRequest{
		Q:      text,
		Target: targetLang,
		Source: sourceLang,
	}

	startTime := time.Now()
	resp, err := postJSON(ctx, c.httpClient, c.baseURL, payload, c.authHeader())
	if err != nil {
		c.logger.WithError(err).Error("Translation request failed")
		return "", err
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)
	if !isSuccess(resp.StatusCode) {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
		}).Error("Translation request returned non-OK status")
		return "", newTransportError("Translate", resp.StatusCode, "")
	}

	var gResp googleTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode translation response")
		return "", &ParseError{Op: "Translate", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")

	if len(gResp.Data.Translations) == 0 {
		return "", nil
	}
	return gResp.Data.Translations[0].TranslatedText, nil
}

// CheckHealth reports whether an API key is configured. Google exposes no
// free health endpoint, so no request is made.
func (c *GoogleClient) CheckHealth(ctx context.Context) error {
	return c.ensureKey()
}

// SupportedLanguages returns the languages Parlance offers for Google.
func (c *GoogleClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	return languageCodes(), nil
}
