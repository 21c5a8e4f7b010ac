// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analytics maintains a bounded history of routing decisions
// and computes aggregate statistics on demand.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/projectrouter/core/pkg/store"
)

// Mode distinguishes manual project pinning from automatic routing.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

// Metric is one recorded routing decision.
type Metric struct {
	Timestamp     time.Time `json:"timestamp"`
	Query         string    `json:"query"`
	ProjectSelected string  `json:"project_selected"`
	Confidence    float64   `json:"confidence"`
	RoutingTimeMs int64     `json:"routing_time_ms"`
	CacheHit      bool      `json:"cache_hit"`
	Mode          Mode      `json:"mode"`
	Reasoning     string    `json:"reasoning"`
	Alternatives  []string  `json:"alternatives"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// ProjectStats aggregates metrics for a single project.
type ProjectStats struct {
	Count           int     `json:"count"`
	TotalConfidence float64 `json:"total_confidence"`
	TotalRoutingMs  int64   `json:"total_routing_ms"`
	CacheHits       int     `json:"cache_hits"`
	Failures        int     `json:"failures"`
}

// AvgConfidence returns the project's mean confidence across recorded
// metrics, or 0 if none were recorded.
func (p ProjectStats) AvgConfidence() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.TotalConfidence / float64(p.Count)
}

// Summary is the on-demand aggregate view over the recorded history.
type Summary struct {
	TotalQueries    int                      `json:"total_queries"`
	ProjectUsage    map[string]*ProjectStats `json:"project_usage"`
	AvgConfidence   float64                  `json:"avg_confidence"`
	CacheHitRate    float64                  `json:"cache_hit_rate"`
	AvgRoutingMs    float64                  `json:"avg_routing_ms"`
	Failures        int                      `json:"failures"`
	ManualCount     int                      `json:"manual_count"`
	AutomaticCount  int                      `json:"automatic_count"`
	TopPatterns     map[string]int           `json:"top_patterns"`
	RangeStart      time.Time                `json:"range_start"`
	RangeEnd        time.Time                `json:"range_end"`
}

// TimeSeriesPoint is one bucket of a time_series query.
type TimeSeriesPoint struct {
	BucketStart time.Time `json:"bucket_start"`
	Value       float64   `json:"value"`
}

// MetricName selects which field time_series aggregates.
type MetricName string

const (
	MetricQueries     MetricName = "queries"
	MetricConfidence  MetricName = "confidence"
	MetricRoutingTime MetricName = "routing_time"
	MetricCacheHits   MetricName = "cache_hits"
)

type snapshot struct {
	Metrics []Metric `json:"metrics"`
}

// Analytics is an append-only ring buffer of routing metrics plus
// on-demand aggregation.
type Analytics struct {
	mu         sync.Mutex
	maxHistory int
	storePath  string
	metrics    []Metric
}

// New builds an Analytics store, loading any existing snapshot at
// storePath. maxHistory=0 is a valid boundary: every Record call is
// accepted but immediately discarded, so Summary always reports zeros.
// A negative maxHistory is treated as unset.
func New(storePath string, maxHistory int) *Analytics {
	if maxHistory < 0 {
		maxHistory = 1000
	}
	a := &Analytics{maxHistory: maxHistory, storePath: storePath}
	a.load()
	return a
}

func (a *Analytics) load() {
	var snap snapshot
	ok, err := store.LoadJSON(a.storePath, &snap)
	if err != nil || !ok {
		return
	}
	a.metrics = snap.Metrics
}

func (a *Analytics) persist() {
	if a.storePath == "" {
		return
	}
	_ = store.SaveJSON(a.storePath, snapshot{Metrics: a.metrics})
}

// Record appends a metric, evicting the oldest entry if the ring
// buffer is at capacity.
func (a *Analytics) Record(m Metric) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics = append(a.metrics, m)
	if len(a.metrics) > a.maxHistory {
		a.metrics = a.metrics[len(a.metrics)-a.maxHistory:]
	}
	a.persist()
}

// Summary computes aggregate statistics over metrics whose timestamp
// falls within [start, end]. A zero start or end leaves that bound
// open.
func (a *Analytics) Summary(start, end time.Time) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := Summary{
		ProjectUsage: make(map[string]*ProjectStats),
		TopPatterns:  make(map[string]int),
	}

	var totalConfidence, totalRoutingMs float64
	var cacheHits int

	for _, m := range a.metrics {
		if !start.IsZero() && m.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && m.Timestamp.After(end) {
			continue
		}

		summary.TotalQueries++
		totalConfidence += m.Confidence
		totalRoutingMs += float64(m.RoutingTimeMs)
		if m.CacheHit {
			cacheHits++
		}
		if !m.Success {
			summary.Failures++
		}
		if m.Mode == ModeManual {
			summary.ManualCount++
		} else {
			summary.AutomaticCount++
		}

		stats, ok := summary.ProjectUsage[m.ProjectSelected]
		if !ok {
			stats = &ProjectStats{}
			summary.ProjectUsage[m.ProjectSelected] = stats
		}
		stats.Count++
		stats.TotalConfidence += m.Confidence
		stats.TotalRoutingMs += m.RoutingTimeMs
		if m.CacheHit {
			stats.CacheHits++
		}
		if !m.Success {
			stats.Failures++
		}

		summary.TopPatterns[extractPattern(m.Query)]++

		if summary.RangeStart.IsZero() || m.Timestamp.Before(summary.RangeStart) {
			summary.RangeStart = m.Timestamp
		}
		if m.Timestamp.After(summary.RangeEnd) {
			summary.RangeEnd = m.Timestamp
		}
	}

	if summary.TotalQueries > 0 {
		summary.AvgConfidence = totalConfidence / float64(summary.TotalQueries)
		summary.CacheHitRate = float64(cacheHits) / float64(summary.TotalQueries)
		summary.AvgRoutingMs = totalRoutingMs / float64(summary.TotalQueries)
	}

	return summary
}

// extractPattern mirrors feedback.ExtractPattern's coarse
// question-starter heuristic without importing the feedback package,
// since analytics and feedback are independent leaf packages.
func extractPattern(query string) string {
	fields := splitFields(query)
	if len(fields) == 0 {
		return "statement"
	}
	switch fields[0] {
	case "what", "when", "where", "who", "why", "how", "is", "are", "can", "does":
		return fields[0]
	default:
		return "statement"
	}
}

func splitFields(s string) []string {
	var fields []string
	var cur []rune
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if len(cur) > 0 {
				fields = append(fields, toLower(string(cur)))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		fields = append(fields, toLower(string(cur)))
	}
	return fields
}

func toLower(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c + ('a' - 'A')
		}
	}
	return string(r)
}

// TimeSeries buckets the given metric over the last `hours` hours into
// bucketMinutes-wide buckets, returning only non-empty buckets.
func (a *Analytics) TimeSeries(name MetricName, hours int, bucketMinutes int) []TimeSeriesPoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	if bucketMinutes <= 0 {
		bucketMinutes = 60
	}
	bucketSize := time.Duration(bucketMinutes) * time.Minute
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	type bucketAgg struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*bucketAgg)

	for _, m := range a.metrics {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		bucketKey := m.Timestamp.Truncate(bucketSize).Unix()
		agg, ok := buckets[bucketKey]
		if !ok {
			agg = &bucketAgg{}
			buckets[bucketKey] = agg
		}
		switch name {
		case MetricConfidence:
			agg.sum += m.Confidence
		case MetricRoutingTime:
			agg.sum += float64(m.RoutingTimeMs)
		case MetricCacheHits:
			if m.CacheHit {
				agg.sum++
			}
		default: // MetricQueries
			agg.sum++
		}
		agg.count++
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]TimeSeriesPoint, 0, len(keys))
	for _, k := range keys {
		agg := buckets[k]
		value := agg.sum
		if name == MetricConfidence {
			value = agg.sum / float64(agg.count)
		}
		points = append(points, TimeSeriesPoint{BucketStart: time.Unix(k, 0), Value: value})
	}
	return points
}

// ProjectStatsFor returns the aggregate stats for a single project.
func (a *Analytics) ProjectStatsFor(name string) ProjectStats {
	summary := a.Summary(time.Time{}, time.Time{})
	if stats, ok := summary.ProjectUsage[name]; ok {
		return *stats
	}
	return ProjectStats{}
}

// Clear discards every recorded metric.
func (a *Analytics) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = nil
	a.persist()
}

// Export writes the full metric history as JSON to path.
func (a *Analytics) Export(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return store.SaveJSON(path, snapshot{Metrics: a.metrics})
}
