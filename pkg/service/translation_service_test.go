package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dasmlab/parlance/pkg/api"
	"github.com/dasmlab/parlance/pkg/monitor"
	"github.com/dasmlab/parlance/pkg/translate"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeTranslator answers from fixed values and remembers the last call.
type fakeTranslator struct {
	detected  string
	detectErr error
	output    string
	transErr  error

	detectCalls int
	lastSource  string
	lastTarget  string
}

func (f *fakeTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	f.detectCalls++
	return f.detected, f.detectErr
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.lastSource, f.lastTarget = sourceLang, targetLang
	return f.output, f.transErr
}

func (f *fakeTranslator) CheckHealth(ctx context.Context) error { return nil }

func (f *fakeTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en"}, nil
}

func newService(tr translate.Translator) (*TranslationService, *monitor.Store) {
	store := monitor.New()
	return NewTranslationService(tr, translate.ProviderProxy, store, quietLogger()), store
}

func TestDetectLanguage_RecordsDetection(t *testing.T) {
	svc, store := newService(&fakeTranslator{detected: "fr"})

	lang, err := svc.DetectLanguage(context.Background(), "Bonjour")
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if lang != "fr" {
		t.Errorf("lang = %q, want fr", lang)
	}

	st := store.Snapshot()
	if st.Detections != 1 || st.Characters != 7 {
		t.Errorf("stats = %+v, want 1 detection and 7 characters", st.Stats)
	}
	if st.History[0].Message != "Detected language: fr" {
		t.Errorf("History[0].Message = %q", st.History[0].Message)
	}
}

func TestDetectLanguage_FailureRecordedOnce(t *testing.T) {
	svc, store := newService(&fakeTranslator{detectErr: errors.New("Detect failed: 500 boom")})

	if _, err := svc.DetectLanguage(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}

	st := store.Snapshot()
	if st.Errors != 1 || st.Detections != 0 {
		t.Errorf("stats = %+v, want exactly one error", st.Stats)
	}
	if len(st.History) != 1 || st.History[0].Message != "Detect failed: 500 boom" {
		t.Errorf("history = %+v", st.History)
	}
}

func TestTranslateText_NormalizesCodes(t *testing.T) {
	fake := &fakeTranslator{output: "Hola"}
	svc, store := newService(fake)

	out, err := svc.TranslateText(context.Background(), "Hello", "es-MX", "EN")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if out != "Hola" {
		t.Errorf("out = %q, want Hola", out)
	}
	if fake.lastSource != "en" || fake.lastTarget != "es" {
		t.Errorf("codes sent = %q -> %q, want en -> es", fake.lastSource, fake.lastTarget)
	}
	if st := store.Snapshot(); st.Translations != 1 || st.Characters != 5 {
		t.Errorf("stats = %+v", st.Stats)
	}
}

func TestTranslateText_CountsRunes(t *testing.T) {
	svc, store := newService(&fakeTranslator{output: "hello"})
	if _, err := svc.TranslateText(context.Background(), "こんにちは", "en", "ja"); err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if got := store.Snapshot().Characters; got != 5 {
		t.Errorf("Characters = %d, want 5", got)
	}
}

func TestTranslate_AutoDetectsSource(t *testing.T) {
	fake := &fakeTranslator{detected: "de", output: "Hello"}
	svc, store := newService(fake)

	resp, err := svc.Translate(context.Background(), api.TranslateRequest{Text: "Hallo", Target: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if resp.SourceLanguage == nil || *resp.SourceLanguage != "de" {
		t.Errorf("SourceLanguage = %v, want de", resp.SourceLanguage)
	}
	if resp.Provider != "proxy" || resp.OriginalText != "Hallo" || resp.TranslatedText != "Hello" {
		t.Errorf("resp = %+v", resp)
	}
	st := store.Snapshot()
	if st.Detections != 1 || st.Translations != 1 {
		t.Errorf("stats = %+v, want one detection and one translation", st.Stats)
	}
}

func TestTranslate_DetectionFailureLeavesSourceUnset(t *testing.T) {
	fake := &fakeTranslator{detectErr: errors.New("down"), output: "Hi"}
	svc, _ := newService(fake)

	resp, err := svc.Translate(context.Background(), api.TranslateRequest{Text: "Salut", Target: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if resp.SourceLanguage != nil {
		t.Errorf("SourceLanguage = %v, want nil", *resp.SourceLanguage)
	}
	if fake.lastSource != "" {
		t.Errorf("source sent = %q, want empty", fake.lastSource)
	}
}

func TestTranslate_ExplicitSourceSkipsDetection(t *testing.T) {
	fake := &fakeTranslator{output: "Hi"}
	svc, _ := newService(fake)

	if _, err := svc.Translate(context.Background(), api.TranslateRequest{Text: "Salut", Target: "en", Source: "fr"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if fake.detectCalls != 0 {
		t.Errorf("detect called %d times, want 0", fake.detectCalls)
	}
}

func TestTranslateText_Google403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	google := translate.NewGoogleClient(srv.URL, "key", srv.Client(), quietLogger())
	svc, store := newService(google)

	_, err := svc.TranslateText(context.Background(), "Hello", "fr", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error %q should contain 403", err)
	}
	var te *translate.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusForbidden {
		t.Errorf("error %v should be a 403 TransportError", err)
	}
	if st := store.Snapshot(); st.Errors != 1 || st.Translations != 0 {
		t.Errorf("stats = %+v, want one error", st.Stats)
	}
}

func TestTranslateText_HuggingFaceFallback(t *testing.T) {
	var primary, fallback atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + translate.PrimaryTranslationModel:
			primary.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/Helsinki-NLP/opus-mt-en-es":
			fallback.Add(1)
			io.WriteString(w, `[{"translation_text":"Hola"}]`)
		default:
			t.Errorf("unexpected model %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	hf := translate.NewHuggingFaceClient(srv.URL, "", srv.Client(), quietLogger())
	svc, store := newService(hf)

	out, err := svc.TranslateText(context.Background(), "Hello", "es", "en")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	if out != "Hola" {
		t.Errorf("out = %q, want Hola", out)
	}
	if primary.Load() != 1 || fallback.Load() != 1 {
		t.Errorf("calls primary=%d fallback=%d, want 1/1", primary.Load(), fallback.Load())
	}
	if st := store.Snapshot(); st.Errors != 0 || st.Translations != 1 {
		t.Errorf("stats = %+v, want one translation and no errors", st.Stats)
	}
}

func TestTranslateText_RegionalChineseReachesBackends(t *testing.T) {
	var googleTarget atomic.Value
	gsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		googleTarget.Store(body["target"])
		io.WriteString(w, `{"data":{"translations":[{"translatedText":"你好"}]}}`)
	}))
	defer gsrv.Close()

	google := translate.NewGoogleClient(gsrv.URL, "key", gsrv.Client(), quietLogger())
	svc, _ := newService(google)
	if _, err := svc.TranslateText(context.Background(), "hello", "zh-TW", ""); err != nil {
		t.Fatalf("google TranslateText: %v", err)
	}
	if got := googleTarget.Load(); got != "zh-TW" {
		t.Errorf("google target = %v, want zh-TW", got)
	}

	var hfTarget atomic.Value
	hsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Parameters map[string]string `json:"parameters"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		hfTarget.Store(body.Parameters["tgt_lang"])
		io.WriteString(w, `[{"translation_text":"你好"}]`)
	}))
	defer hsrv.Close()

	hf := translate.NewHuggingFaceClient(hsrv.URL, "", hsrv.Client(), quietLogger())
	svc, _ = newService(hf)
	if _, err := svc.TranslateText(context.Background(), "hello", "zh_TW", "en"); err != nil {
		t.Fatalf("hf TranslateText: %v", err)
	}
	if got := hfTarget.Load(); got != "zho_Hant" {
		t.Errorf("hf tgt_lang = %v, want zho_Hant", got)
	}
}

func TestTranslateText_NetworkErrorKeepsKeyOutOfMonitor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	google := translate.NewGoogleClient(base, "SECRET-KEY-123", nil, quietLogger())
	svc, store := newService(google)

	_, err := svc.TranslateText(context.Background(), "hello", "fr", "")
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Errorf("error leaks the API key: %v", err)
	}

	snap, _ := json.Marshal(store.Snapshot())
	if strings.Contains(string(snap), "SECRET-KEY-123") {
		t.Errorf("monitor snapshot leaks the API key: %s", snap)
	}
	if store.Snapshot().Errors != 1 {
		t.Errorf("errors = %d, want 1", store.Snapshot().Errors)
	}
}
