// Package prefs stores the caller's preferred target language in a cookie.
package prefs

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
)

const (
	// CookieName is the cookie holding the preferred language code.
	CookieName = "preferred_lang"
	// CookieLifetime is how long the preference cookie lives.
	CookieLifetime = 365 * 24 * time.Hour
	// DefaultLanguage is used when neither cookie nor locale is available.
	DefaultLanguage = "en"
)

// Persister saves the preferred language somewhere durable.
type Persister interface {
	Persist(code string) error
}

// Store holds the preferred language. Every change is persisted
// immediately; there is no separate save call.
type Store struct {
	mu        sync.RWMutex
	preferred string
	persister Persister
}

// Load initializes a Store from r. The cookie wins, then the primary subtag
// of the best Accept-Language entry, then DefaultLanguage. The initial value
// is persisted straight away, which refreshes the cookie's expiry.
func Load(r *http.Request, p Persister) (*Store, error) {
	s := New(InitialLanguage(r), p)
	if err := s.persist(s.preferred); err != nil {
		return s, err
	}
	return s, nil
}

// New creates a Store holding code without persisting it.
func New(code string, p Persister) *Store {
	return &Store{preferred: code, persister: p}
}

// InitialLanguage resolves the preference carried by r, falling back to the
// browser locale and then DefaultLanguage.
func InitialLanguage(r *http.Request) string {
	if r == nil {
		return DefaultLanguage
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil && v != "" {
			return v
		}
	}
	if code := LocaleLanguage(r.Header.Get("Accept-Language")); code != "" {
		return code
	}
	return DefaultLanguage
}

// LocaleLanguage returns the primary subtag of the highest-weighted entry of
// an Accept-Language header, or "" if none parses.
func LocaleLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, conf := tags[0].Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// PreferredLanguage returns the current preference.
func (s *Store) PreferredLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preferred
}

// SetPreferredLanguage validates code, reduces it to its base language and
// persists it.
func (s *Store) SetPreferredLanguage(code string) error {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("invalid language code %q: %w", code, err)
	}
	base, _ := tag.Base()

	s.mu.Lock()
	s.preferred = base.String()
	s.mu.Unlock()

	return s.persist(base.String())
}

func (s *Store) persist(code string) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Persist(code); err != nil {
		return fmt.Errorf("persist preference: %w", err)
	}
	return nil
}

// CookiePersister writes the preference as a Set-Cookie header.
type CookiePersister struct {
	W   http.ResponseWriter
	Now func() time.Time
}

// Persist sets the preference cookie on the response.
func (p CookiePersister) Persist(code string) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	http.SetCookie(p.W, NewCookie(code, now()))
	return nil
}

// NewCookie builds the preference cookie for code as of now.
func NewCookie(code string, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(code),
		Path:     "/",
		Expires:  now.Add(CookieLifetime).UTC(),
		MaxAge:   int(CookieLifetime / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}
