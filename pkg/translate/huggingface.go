package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHuggingFaceURL is the Hugging Face Inference endpoint; the model
	// identifier is appended as a path.
	DefaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models"

	// DetectionModel identifies the language of a text.
	DetectionModel = "papluca/xlm-roberta-base-language-detection"
	// PrimaryTranslationModel is tried first for every translation.
	PrimaryTranslationModel = "facebook/nllb-200-distilled-600M"
	// GenericFallbackModel is used when the primary model fails and no
	// pair-specific model is registered.
	GenericFallbackModel = "Helsinki-NLP/opus-mt-mul-en"

	defaultNLLBCode = "eng_Latn"
)

// nllbCodes maps ISO codes to the tags the NLLB-200 model expects.
var nllbCodes = map[string]string{
	"en":    "eng_Latn",
	"es":    "spa_Latn",
	"fr":    "fra_Latn",
	"de":    "deu_Latn",
	"it":    "ita_Latn",
	"pt":    "por_Latn",
	"ru":    "rus_Cyrl",
	"ja":    "jpn_Jpan",
	"ko":    "kor_Hang",
	"zh":    "zho_Hans",
	"zh-CN": "zho_Hans",
	"zh-TW": "zho_Hant",
	"ar":    "arb_Arab",
	"hi":    "hin_Deva",
	"ne":    "npi_Deva",
	"nl":    "nld_Latn",
	"pl":    "pol_Latn",
	"tr":    "tur_Latn",
	"vi":    "vie_Latn",
	"th":    "tha_Thai",
	"id":    "ind_Latn",
}

// opusModels maps "source-target" pairs to bilingual Helsinki-NLP models.
var opusModels = map[string]string{
	"en-es": "Helsinki-NLP/opus-mt-en-es",
	"en-fr": "Helsinki-NLP/opus-mt-en-fr",
	"en-de": "Helsinki-NLP/opus-mt-en-de",
	"en-ja": "Helsinki-NLP/opus-mt-en-jap",
	"en-zh": "Helsinki-NLP/opus-mt-en-zh",
	"en-ar": "Helsinki-NLP/opus-mt-en-ar",
	"en-hi": "Helsinki-NLP/opus-mt-en-hi",
	// No en-ne model is published; Hindi shares the script.
	"en-ne": "Helsinki-NLP/opus-mt-en-hi",
	"es-en": "Helsinki-NLP/opus-mt-es-en",
	"fr-en": "Helsinki-NLP/opus-mt-fr-en",
	"de-en": "Helsinki-NLP/opus-mt-de-en",
	"zh-en": "Helsinki-NLP/opus-mt-zh-en",
}

// FallbackModel returns the model used when the primary model fails for the
// given pair. An empty source is treated as English. Regional codes use the
// model of their base language.
func FallbackModel(sourceLang, targetLang string) string {
	if sourceLang == "" {
		sourceLang = DefaultLanguage
	}
	if model, ok := opusModels[baseCode(sourceLang)+"-"+baseCode(targetLang)]; ok {
		return model
	}
	return GenericFallbackModel
}

// NLLBCode returns the NLLB-200 tag for an ISO code. A regional code without
// its own entry uses its base language; anything unknown maps to English.
func NLLBCode(code string) string {
	if tag, ok := nllbCodes[code]; ok {
		return tag
	}
	if tag, ok := nllbCodes[baseCode(code)]; ok {
		return tag
	}
	return defaultNLLBCode
}

// HuggingFaceClient implements the Translator interface using hosted models on
// Hugging Face Inference. Without a token requests are anonymous and rate limited.
type HuggingFaceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHuggingFaceClient creates a new Hugging Face Inference client.
func NewHuggingFaceClient(baseURL, token string, httpClient *http.Client, logger *logrus.Logger) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = DefaultHuggingFaceURL
	}
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultTimeout)
	}
	if logger == nil {
		logger = logrus.New()
	}

	if token != "" {
		logger.Info("Using Hugging Face with authentication token")
	} else {
		logger.Warn("Using Hugging Face without token (rate limited, for testing only)")
	}

	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

type inferenceRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type translationOutput struct {
	TranslationText string `json:"translation_text"`
}

// infer posts one inference request to model and returns the raw body.
func (c *HuggingFaceClient) infer(ctx context.Context, op, model string, payload inferenceRequest) ([]byte, error) {
	var header http.Header
	if c.token != "" {
		header = http.Header{"Authorization": {"Bearer " + c.token}}
	}

	startTime := time.Now()
	resp, err := postJSON(ctx, c.httpClient, c.baseURL+"/"+model, payload, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"model":       model,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Inference request completed")

	if !isSuccess(resp.StatusCode) {
		return nil, newTransportError(op, resp.StatusCode, readDetail(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// DetectLanguage detects the language of text. It never fails: any error is
// logged and DefaultLanguage is returned instead.
func (c *HuggingFaceClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	body, err := c.infer(ctx, "Detect", DetectionModel, inferenceRequest{Inputs: text})
	if err != nil {
		c.logger.WithError(err).Warn("HF detect failed, falling back to default language")
		return DefaultLanguage, nil
	}

	label, err := topLabel(body)
	if err != nil {
		c.logger.WithError(err).Warn("HF detect returned an unexpected body, falling back to default language")
		return DefaultLanguage, nil
	}
	if label == "" {
		return DefaultLanguage, nil
	}
	return label, nil
}

// topLabel reads the first label of a text-classification result, which may
// be nested one level ([[...]]) or flat ([...]).
func topLabel(body []byte) (string, error) {
	var nested [][]classification
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) > 0 && len(nested[0]) > 0 {
			return nested[0][0].Label, nil
		}
		return "", nil
	}
	var flat []classification
	if err := json.Unmarshal(body, &flat); err != nil {
		return "", err
	}
	if len(flat) > 0 {
		return flat[0].Label, nil
	}
	return "", nil
}

// translationText reads translation_text from a list or single-object body.
func translationText(body []byte) (string, error) {
	var list []translationOutput
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) > 0 {
			return list[0].TranslationText, nil
		}
		return "", nil
	}
	var single translationOutput
	if err := json.Unmarshal(body, &single); err != nil {
		return "", err
	}
	return single.TranslationText, nil
}

// Translate translates text with the NLLB-200 model. If that fails, one more
// attempt is made with a bilingual OPUS model for the pair (see FallbackModel).
func (c *HuggingFaceClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	src := sourceLang
	if src == "" {
		src = DefaultLanguage
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": sourceLang,
		"target_lang": targetLang,
		"text_length": len(text),
	}).Debug("Translating text with Hugging Face")

	translated, err := c.translateWith(ctx, PrimaryTranslationModel, inferenceRequest{
		Inputs: text,
		Parameters: map[string]string{
			"src_lang": NLLBCode(src),
			"tgt_lang": NLLBCode(targetLang),
		},
	})
	if err == nil {
		return translated, nil
	}

	fallback := FallbackModel(sourceLang, targetLang)
	c.logger.WithError(err).WithFields(logrus.Fields{
		"model":          PrimaryTranslationModel,
		"fallback_model": fallback,
	}).Warn("NLLB model failed, trying Helsinki-NLP model")

	translated, err = c.translateWith(ctx, fallback, inferenceRequest{Inputs: text})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model": fallback,
		}).Error("Fallback translation failed")
		return "", fmt.Errorf("translation failed: %w", err)
	}
	return translated, nil
}

func (c *HuggingFaceClient) translateWith(ctx context.Context, model string, payload inferenceRequest) (string, error) {
	body, err := c.infer(ctx, "Translate", model, payload)
	if err != nil {
		return "", err
	}
	text, err := translationText(body)
	if err != nil {
		return "", &ParseError{Op: "Translate", Err: err}
	}
	return text, nil
}

// CheckHealth succeeds without a request; models load lazily on first use and
// a warm-up call would count against the rate limit.
func (c *HuggingFaceClient) CheckHealth(ctx context.Context) error {
	return ctx.Err()
}

// SupportedLanguages returns the ISO codes with an NLLB-200 mapping.
func (c *HuggingFaceClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	return languageCodes(), nil
}
