package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/dasmlab/parlance/pkg/api"
	"github.com/dasmlab/parlance/pkg/monitor"
	"github.com/dasmlab/parlance/pkg/translate"
	"github.com/sirupsen/logrus"
)

// TranslationService wraps a translation provider and records the outcome
// of every call in a monitor store.
type TranslationService struct {
	// Translator is the provider backend selected at startup.
	Translator translate.Translator

	// Provider names the backend, reported back to callers.
	Provider translate.ProviderType

	// Monitor receives one recording per call.
	Monitor *monitor.Store

	// LanguageMapper normalizes caller language codes.
	LanguageMapper *translate.LanguageMapper

	// Logger for service operations.
	Logger *logrus.Logger

	now func() time.Time
}

// NewTranslationService creates a new TranslationService instance.
func NewTranslationService(translator translate.Translator, provider translate.ProviderType, store *monitor.Store, logger *logrus.Logger) *TranslationService {
	if logger == nil {
		logger = logrus.New()
	}
	if store == nil {
		store = monitor.New()
	}

	return &TranslationService{
		Translator:     translator,
		Provider:       provider,
		Monitor:        store,
		LanguageMapper: translate.NewLanguageMapper(),
		Logger:         logger,
		now:            time.Now,
	}
}

func (s *TranslationService) since(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

// DetectLanguage detects the language of text.
// A failure is recorded in the monitor and returned unchanged.
func (s *TranslationService) DetectLanguage(ctx context.Context, text string) (string, error) {
	textLen := utf8.RuneCountInString(text)

	start := s.now()
	lang, err := s.Translator.DetectLanguage(ctx, text)
	latency := s.since(start)

	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"provider":    s.Provider,
			"text_length": textLen,
		}).Error("Language detection failed")
		s.Monitor.RecordError(err.Error())
		return "", err
	}

	s.Monitor.RecordDetection(latency, textLen, lang)
	s.Logger.WithFields(logrus.Fields{
		"provider":          s.Provider,
		"detected_language": lang,
		"duration_ms":       latency,
	}).Debug("Language detected")
	return lang, nil
}

// TranslateText translates text into target. source may be empty.
// The result is empty when the provider omits the translated text.
func (s *TranslationService) TranslateText(ctx context.Context, text, target, source string) (string, error) {
	textLen := utf8.RuneCountInString(text)
	target = s.LanguageMapper.ToBackendCode(target)
	source = s.LanguageMapper.ToBackendCode(source)

	start := s.now()
	translated, err := s.Translator.Translate(ctx, text, source, target)
	latency := s.since(start)

	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"provider":    s.Provider,
			"source_lang": source,
			"target_lang": target,
		}).Error("Translation failed")
		s.Monitor.RecordError(err.Error())
		return "", err
	}

	s.Monitor.RecordTranslation(latency, textLen, target)
	s.Logger.WithFields(logrus.Fields{
		"provider":    s.Provider,
		"source_lang": source,
		"target_lang": target,
		"duration_ms": latency,
	}).Info("Translation completed successfully")
	return translated, nil
}

// Translate answers a full translate request. Without a source language the
// text is detected first; if that detection fails the source stays unset and
// the provider infers it.
func (s *TranslationService) Translate(ctx context.Context, req api.TranslateRequest) (api.TranslateResponse, error) {
	var source *string
	if req.Source != "" {
		src := s.LanguageMapper.ToBackendCode(req.Source)
		source = &src
	} else if detected, err := s.DetectLanguage(ctx, req.Text); err == nil {
		source = &detected
	} else {
		s.Logger.WithError(err).Warn("Source auto-detection failed, translating without source")
	}

	src := ""
	if source != nil {
		src = *source
	}
	translated, err := s.TranslateText(ctx, req.Text, req.Target, src)
	if err != nil {
		return api.TranslateResponse{}, err
	}

	return api.TranslateResponse{
		TranslatedText: translated,
		OriginalText:   req.Text,
		SourceLanguage: source,
		TargetLanguage: req.Target,
		Provider:       string(s.Provider),
	}, nil
}

// CheckHealth reports whether the provider is ready.
func (s *TranslationService) CheckHealth(ctx context.Context) error {
	return s.Translator.CheckHealth(ctx)
}
