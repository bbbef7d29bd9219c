// Package monitor keeps running usage statistics and a bounded log of recent
// translation activity.
package monitor

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryCapacity is the maximum number of activity records kept.
const HistoryCapacity = 50

// Kind classifies an activity record.
type Kind string

const (
	// KindDetect marks a successful language detection.
	KindDetect Kind = "detect"
	// KindTranslate marks a successful translation.
	KindTranslate Kind = "translate"
	// KindError marks a failed detection or translation.
	KindError Kind = "error"
)

// ActivityMeta carries the measurements of a successful call.
type ActivityMeta struct {
	LatencyMs  int64 `json:"latencyMs"`
	TextLength int   `json:"textLen"`
}

// Activity is one entry of the activity log. Records are never modified
// after they are created.
type Activity struct {
	ID      string        `json:"id"`
	Kind    Kind          `json:"type"`
	Message string        `json:"message"`
	At      time.Time     `json:"at"`
	Meta    *ActivityMeta `json:"meta,omitempty"`
}

// Stats are the running counters.
type Stats struct {
	Translations  int64 `json:"translations"`
	Detections    int64 `json:"detections"`
	Errors        int64 `json:"errors"`
	Characters    int64 `json:"characters"`
	LastLatencyMs int64 `json:"lastLatencyMs"`
	AvgLatencyMs  int64 `json:"avgLatencyMs"`
}

// State is a point-in-time copy of the store.
type State struct {
	Stats
	// History is most recent first.
	History []Activity `json:"history"`
	// Revision increases by one on every recording.
	Revision uint64 `json:"revision"`
}

// Store aggregates detection, translation and error outcomes.
// It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	stats    Stats
	latSumMs int64
	history  []Activity
	revision uint64

	capacity int
	now      func() time.Time
	metrics  *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics mirrors every recording into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCapacity overrides HistoryCapacity.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		capacity: HistoryCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = make([]Activity, 0, s.capacity)
	return s
}

// RecordDetection records a successful language detection.
func (s *Store) RecordDetection(latencyMs int64, textLen int, lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Detections++
	s.observeLatency(latencyMs, textLen)
	s.push(KindDetect, "Detected language: "+lang, &ActivityMeta{LatencyMs: latencyMs, TextLength: textLen})
	s.metrics.observe(KindDetect, latencyMs, textLen)
}

// RecordTranslation records a successful translation into target.
func (s *Store) RecordTranslation(latencyMs int64, textLen int, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Translations++
	s.observeLatency(latencyMs, textLen)
	s.push(KindTranslate, "Translated to: "+target, &ActivityMeta{LatencyMs: latencyMs, TextLength: textLen})
	s.metrics.observe(KindTranslate, latencyMs, textLen)
}

// RecordError records a failed call.
func (s *Store) RecordError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Errors++
	s.push(KindError, message, nil)
	s.metrics.observeError()
}

// observeLatency must be called after the detection or translation counter
// has been incremented. The average is derived from the exact sum so that
// rounding never accumulates.
func (s *Store) observeLatency(latencyMs int64, textLen int) {
	s.stats.Characters += int64(textLen)
	s.stats.LastLatencyMs = latencyMs
	s.latSumMs += latencyMs
	n := s.stats.Detections + s.stats.Translations
	s.stats.AvgLatencyMs = int64(math.Round(float64(s.latSumMs) / float64(n)))
}

func (s *Store) push(kind Kind, message string, meta *ActivityMeta) {
	a := Activity{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		At:      s.now(),
		Meta:    meta,
	}

	if len(s.history) < s.capacity {
		s.history = append(s.history, Activity{})
	}
	// Shift right by one, dropping the oldest entry once full.
	copy(s.history[1:], s.history[:len(s.history)-1])
	s.history[0] = a
	s.revision++
	s.metrics.setHistoryLength(len(s.history))
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]Activity, len(s.history))
	for i, a := range s.history {
		if a.Meta != nil {
			meta := *a.Meta
			a.Meta = &meta
		}
		history[i] = a
	}
	return State{
		Stats:    s.stats,
		History:  history,
		Revision: s.revision,
	}
}

// Revision returns the number of recordings made so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}
