package monitor

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDetection_UpdatesCounters(t *testing.T) {
	s := New()
	s.RecordDetection(120, 11, "fr")

	st := s.Snapshot()
	if st.Detections != 1 {
		t.Errorf("Detections = %d, want 1", st.Detections)
	}
	if st.Characters != 11 {
		t.Errorf("Characters = %d, want 11", st.Characters)
	}
	if st.LastLatencyMs != 120 || st.AvgLatencyMs != 120 {
		t.Errorf("latency = %d/%d, want 120/120", st.LastLatencyMs, st.AvgLatencyMs)
	}
	if len(st.History) != 1 {
		t.Fatalf("got %d history entries, want 1", len(st.History))
	}
	a := st.History[0]
	if a.Kind != KindDetect || a.Message != "Detected language: fr" {
		t.Errorf("activity = %+v", a)
	}
	if a.Meta == nil || a.Meta.LatencyMs != 120 || a.Meta.TextLength != 11 {
		t.Errorf("meta = %+v", a.Meta)
	}
	if a.ID == "" {
		t.Error("activity ID should be set")
	}
}

func TestRecordTranslation_UpdatesCounters(t *testing.T) {
	s := New()
	s.RecordTranslation(80, 5, "es")
	s.RecordTranslation(40, 3, "de")

	st := s.Snapshot()
	if st.Translations != 2 {
		t.Errorf("Translations = %d, want 2", st.Translations)
	}
	if st.Characters != 8 {
		t.Errorf("Characters = %d, want 8", st.Characters)
	}
	if st.LastLatencyMs != 40 {
		t.Errorf("LastLatencyMs = %d, want 40", st.LastLatencyMs)
	}
	if st.History[0].Message != "Translated to: de" {
		t.Errorf("History[0].Message = %q, want most recent first", st.History[0].Message)
	}
}

func TestRecordError_DoesNotTouchLatency(t *testing.T) {
	s := New()
	s.RecordDetection(100, 4, "en")
	s.RecordError("Translate failed: 403 Forbidden")

	st := s.Snapshot()
	if st.Errors != 1 {
		t.Errorf("Errors = %d, want 1", st.Errors)
	}
	if st.AvgLatencyMs != 100 || st.Characters != 4 {
		t.Errorf("error changed latency stats: %+v", st.Stats)
	}
	if st.History[0].Kind != KindError || st.History[0].Meta != nil {
		t.Errorf("History[0] = %+v", st.History[0])
	}
}

func TestAverageLatency_IsRoundedMean(t *testing.T) {
	cases := [][]int64{
		{1, 0},
		{1, 0, 0},
		{10, 20, 30},
		{7, 8},
		{3, 3, 4, 100, 1},
	}
	for _, latencies := range cases {
		t.Run(fmt.Sprint(latencies), func(t *testing.T) {
			s := New()
			var sum int64
			for i, l := range latencies {
				if i%2 == 0 {
					s.RecordDetection(l, 1, "en")
				} else {
					s.RecordTranslation(l, 1, "fr")
				}
				sum += l
			}
			want := int64(math.Round(float64(sum) / float64(len(latencies))))
			if got := s.Snapshot().AvgLatencyMs; got != want {
				t.Errorf("AvgLatencyMs = %d, want %d", got, want)
			}
		})
	}
}

func TestHistory_CappedMostRecentFirst(t *testing.T) {
	s := New()
	for i := 0; i < HistoryCapacity+25; i++ {
		s.RecordError(fmt.Sprintf("err %d", i))
	}

	st := s.Snapshot()
	if len(st.History) != HistoryCapacity {
		t.Fatalf("got %d entries, want %d", len(st.History), HistoryCapacity)
	}
	if st.History[0].Message != fmt.Sprintf("err %d", HistoryCapacity+24) {
		t.Errorf("History[0] = %q, want newest", st.History[0].Message)
	}
	if st.History[HistoryCapacity-1].Message != "err 25" {
		t.Errorf("last entry = %q, want err 25", st.History[HistoryCapacity-1].Message)
	}
	if st.Errors != HistoryCapacity+25 {
		t.Errorf("Errors = %d, counters must not be capped", st.Errors)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New()
	s.RecordTranslation(10, 2, "fr")

	st := s.Snapshot()
	st.History[0].Message = "mutated"
	st.History[0].Meta.LatencyMs = 999

	again := s.Snapshot()
	if again.History[0].Message != "Translated to: fr" || again.History[0].Meta.LatencyMs != 10 {
		t.Errorf("snapshot shares memory with store: %+v", again.History[0])
	}
}

func TestRevision_Increments(t *testing.T) {
	s := New(WithCapacity(2))
	for i := 0; i < 5; i++ {
		s.RecordError("x")
	}
	if s.Revision() != 5 {
		t.Errorf("Revision = %d, want 5", s.Revision())
	}
	if len(s.Snapshot().History) != 2 {
		t.Errorf("capacity option ignored")
	}
}

func TestWithClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return at }))
	s.RecordError("boom")
	if got := s.Snapshot().History[0].At; !got.Equal(at) {
		t.Errorf("At = %v, want %v", got, at)
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordDetection(10, 1, "en")
			s.RecordTranslation(30, 1, "fr")
		}()
	}
	wg.Wait()

	st := s.Snapshot()
	if st.Detections != 100 || st.Translations != 100 {
		t.Errorf("counts = %d/%d, want 100/100", st.Detections, st.Translations)
	}
	if st.AvgLatencyMs != 20 {
		t.Errorf("AvgLatencyMs = %d, want 20", st.AvgLatencyMs)
	}
}

func TestMetrics_MirrorRecordings(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "google")
	s := New(WithMetrics(m))

	s.RecordDetection(100, 3, "en")
	s.RecordTranslation(200, 3, "fr")
	s.RecordTranslation(300, 3, "de")
	s.RecordError("nope")

	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("translate")); got != 2 {
		t.Errorf("translate ops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("detect")); got != 1 {
		t.Errorf("detect ops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.historyLength); got != 4 {
		t.Errorf("history length = %v, want 4", got)
	}
}
