package prefs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingPersister struct {
	saved []string
	err   error
}

func (p *recordingPersister) Persist(code string) error {
	p.saved = append(p.saved, code)
	return p.err
}

func TestLoad_PrefersCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "de"})
	r.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

	p := &recordingPersister{}
	s, err := Load(r, p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.PreferredLanguage(); got != "de" {
		t.Errorf("PreferredLanguage = %q, want de", got)
	}
	if len(p.saved) != 1 || p.saved[0] != "de" {
		t.Errorf("initial value not persisted: %v", p.saved)
	}
}

func TestLoad_FallsBackToLocale(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "pt-BR,pt;q=0.8,en;q=0.5")

	s, err := Load(r, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.PreferredLanguage(); got != "pt" {
		t.Errorf("PreferredLanguage = %q, want pt", got)
	}
}

func TestLoad_DefaultsToEnglish(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	s, _ := Load(r, nil)
	if got := s.PreferredLanguage(); got != "en" {
		t.Errorf("PreferredLanguage = %q, want en", got)
	}

	s, _ = Load(nil, nil)
	if got := s.PreferredLanguage(); got != "en" {
		t.Errorf("nil request: PreferredLanguage = %q, want en", got)
	}
}

func TestLocaleLanguage(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"en-US":             "en",
		"zh-TW,zh;q=0.9":    "zh",
		"fr;q=0.5,ja;q=0.9": "ja",
		"es-419, en;q=0.2":  "es",
	}
	for in, want := range cases {
		if got := LocaleLanguage(in); got != want {
			t.Errorf("LocaleLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetPreferredLanguage_PersistsCookie(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	s, err := Load(httptest.NewRequest(http.MethodGet, "/", nil), CookiePersister{W: rec, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.SetPreferredLanguage("fr"); err != nil {
		t.Fatalf("SetPreferredLanguage: %v", err)
	}
	if got := s.PreferredLanguage(); got != "fr" {
		t.Errorf("PreferredLanguage = %q, want fr", got)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2 (load + set)", len(cookies))
	}
	c := cookies[1]
	if c.Name != "preferred_lang" || c.Value != "fr" {
		t.Errorf("cookie = %s=%s, want preferred_lang=fr", c.Name, c.Value)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if want := now.Add(365 * 24 * time.Hour); !c.Expires.Equal(want) {
		t.Errorf("Expires = %v, want %v", c.Expires, want)
	}
}

func TestSetPreferredLanguage_NormalizesAndValidates(t *testing.T) {
	p := &recordingPersister{}
	s, _ := Load(nil, p)

	if err := s.SetPreferredLanguage("en-GB"); err != nil {
		t.Fatalf("SetPreferredLanguage: %v", err)
	}
	if got := s.PreferredLanguage(); got != "en" {
		t.Errorf("PreferredLanguage = %q, want en", got)
	}

	if err := s.SetPreferredLanguage("???"); err == nil {
		t.Error("expected error for invalid code")
	}
	if got := s.PreferredLanguage(); got != "en" {
		t.Errorf("invalid code changed state to %q", got)
	}
}

func TestSetPreferredLanguage_PersistError(t *testing.T) {
	p := &recordingPersister{}
	s, _ := Load(nil, p)
	p.err = errors.New("disk full")

	if err := s.SetPreferredLanguage("ja"); err == nil {
		t.Error("expected persist error")
	}
}
