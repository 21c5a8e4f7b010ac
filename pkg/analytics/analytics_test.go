package analytics

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAnalytics_RecordAndSummary(t *testing.T) {
	a := New("", 100)

	a.Record(Metric{Timestamp: time.Now(), Query: "what is my balance", ProjectSelected: "billing", Confidence: 0.9, RoutingTimeMs: 10, CacheHit: true, Mode: ModeAutomatic, Success: true})
	a.Record(Metric{Timestamp: time.Now(), Query: "cancel my order", ProjectSelected: "orders", Confidence: 0.8, RoutingTimeMs: 20, CacheHit: false, Mode: ModeManual, Success: false})

	summary := a.Summary(time.Time{}, time.Time{})
	if summary.TotalQueries != 2 {
		t.Fatalf("TotalQueries = %d, want 2", summary.TotalQueries)
	}
	if summary.Failures != 1 {
		t.Errorf("Failures = %d, want 1", summary.Failures)
	}
	if summary.ManualCount != 1 || summary.AutomaticCount != 1 {
		t.Errorf("ManualCount/AutomaticCount = %d/%d, want 1/1", summary.ManualCount, summary.AutomaticCount)
	}
	if summary.CacheHitRate != 0.5 {
		t.Errorf("CacheHitRate = %v, want 0.5", summary.CacheHitRate)
	}
	if summary.ProjectUsage["billing"].Count != 1 {
		t.Errorf("billing usage count = %d, want 1", summary.ProjectUsage["billing"].Count)
	}
	if summary.TopPatterns["what"] != 1 || summary.TopPatterns["statement"] != 1 {
		t.Errorf("TopPatterns = %+v, want what=1 statement=1", summary.TopPatterns)
	}
}

func TestAnalytics_RingBufferBounded(t *testing.T) {
	a := New("", 3)
	for i := 0; i < 10; i++ {
		a.Record(Metric{Timestamp: time.Now(), Query: "q", ProjectSelected: "p", Success: true})
	}
	summary := a.Summary(time.Time{}, time.Time{})
	if summary.TotalQueries != 3 {
		t.Errorf("TotalQueries = %d, want bounded to 3", summary.TotalQueries)
	}
}

func TestAnalytics_MaxHistoryZeroDiscardsEverything(t *testing.T) {
	a := New("", 0)
	a.Record(Metric{Timestamp: time.Now(), Query: "q", ProjectSelected: "p", Success: true})

	summary := a.Summary(time.Time{}, time.Time{})
	if summary.TotalQueries != 0 {
		t.Errorf("TotalQueries = %d, want 0 with max_history=0", summary.TotalQueries)
	}
}

func TestAnalytics_SummaryTimeRangeFilter(t *testing.T) {
	a := New("", 100)
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()

	a.Record(Metric{Timestamp: old, Query: "old query", ProjectSelected: "p", Success: true})
	a.Record(Metric{Timestamp: recent, Query: "new query", ProjectSelected: "p", Success: true})

	summary := a.Summary(time.Now().Add(-1*time.Hour), time.Time{})
	if summary.TotalQueries != 1 {
		t.Errorf("TotalQueries with range filter = %d, want 1", summary.TotalQueries)
	}
}

func TestAnalytics_TimeSeries(t *testing.T) {
	a := New("", 100)
	now := time.Now()
	a.Record(Metric{Timestamp: now, Query: "q1", ProjectSelected: "p", Confidence: 0.8, Success: true})
	a.Record(Metric{Timestamp: now, Query: "q2", ProjectSelected: "p", Confidence: 0.6, Success: true})

	points := a.TimeSeries(MetricQueries, 24, 60)
	if len(points) != 1 || points[0].Value != 2 {
		t.Errorf("TimeSeries(queries) = %+v, want one bucket with value 2", points)
	}

	confPoints := a.TimeSeries(MetricConfidence, 24, 60)
	if len(confPoints) != 1 || confPoints[0].Value != 0.7 {
		t.Errorf("TimeSeries(confidence) = %+v, want one bucket with avg 0.7", confPoints)
	}
}

func TestAnalytics_ProjectStatsFor(t *testing.T) {
	a := New("", 100)
	a.Record(Metric{Timestamp: time.Now(), Query: "q", ProjectSelected: "billing", Confidence: 0.8, Success: true})
	a.Record(Metric{Timestamp: time.Now(), Query: "q", ProjectSelected: "billing", Confidence: 0.6, Success: true})

	stats := a.ProjectStatsFor("billing")
	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if avg := stats.AvgConfidence(); avg < 0.69 || avg > 0.71 {
		t.Errorf("AvgConfidence() = %v, want ~0.7", avg)
	}
}

func TestAnalytics_ClearAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.json")
	a := New(path, 100)
	a.Record(Metric{Timestamp: time.Now(), Query: "q", ProjectSelected: "billing", Success: true})

	reloaded := New(path, 100)
	if reloaded.Summary(time.Time{}, time.Time{}).TotalQueries != 1 {
		t.Fatal("reloaded analytics did not pick up persisted metric")
	}

	reloaded.Clear()
	if reloaded.Summary(time.Time{}, time.Time{}).TotalQueries != 0 {
		t.Error("Clear() did not reset metrics")
	}

	again := New(path, 100)
	if again.Summary(time.Time{}, time.Time{}).TotalQueries != 0 {
		t.Error("Clear() was not persisted")
	}
}
