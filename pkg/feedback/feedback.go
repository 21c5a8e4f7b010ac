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

// Package feedback records user verdicts on routing decisions and
// learns corrections from them.
package feedback

import (
	"strings"
	"sync"
	"time"

	"github.com/projectrouter/core/pkg/store"
)

// Verdict is the user's judgment on a routing decision.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// Record is one user verdict on a routed query.
type Record struct {
	Query           string
	SelectedProject string
	Confidence      float64
	UserFeedback    Verdict
	CorrectProject  string
	Timestamp       time.Time
	SessionID       string
}

// Pattern is a learned correction keyed by a coarse extracted pattern,
// reinforced or overridden as further feedback arrives.
type Pattern struct {
	PatternKey     string
	CorrectProject string
	Confidence     float64
	FeedbackCount  int
	LastUpdated    time.Time
}

const (
	reinforcementStep   = 0.05
	maxConfidence       = 0.99
	replaceResetConfidence = 0.7
	replaceThreshold    = 2
	exactCorrectionConfidence = 0.95
	similarQueryOverlapThreshold = 0.5
)

type snapshot struct {
	Records    []Record           `json:"records"`
	Patterns   map[string]*Pattern `json:"patterns"`
	Corrections map[string][]string `json:"corrections"`
}

// Store records feedback and produces adjusted routing decisions from
// accumulated corrections.
type Store struct {
	mu                sync.Mutex
	storePath         string
	learningThreshold float64
	maxHistory        int

	records     []Record
	patterns    map[string]*Pattern
	corrections map[string][]string // normalized query -> corrected projects, most recent last
}

// New builds a Store, loading any existing snapshot at storePath.
// maxHistory=0 is a valid boundary: every Record call is accepted but
// immediately discarded from history. A negative maxHistory is treated
// as unset.
func New(storePath string, learningThreshold float64, maxHistory int) *Store {
	if learningThreshold <= 0 {
		learningThreshold = 0.7
	}
	if maxHistory < 0 {
		maxHistory = 1000
	}
	s := &Store{
		storePath:         storePath,
		learningThreshold: learningThreshold,
		maxHistory:        maxHistory,
		patterns:          make(map[string]*Pattern),
		corrections:       make(map[string][]string),
	}
	s.load()
	return s
}

func (s *Store) load() {
	var snap snapshot
	ok, err := store.LoadJSON(s.storePath, &snap)
	if err != nil || !ok {
		return
	}
	s.records = snap.Records
	if snap.Patterns != nil {
		s.patterns = snap.Patterns
	}
	if snap.Corrections != nil {
		s.corrections = snap.Corrections
	}
}

func (s *Store) persist() {
	if s.storePath == "" {
		return
	}
	_ = store.SaveJSON(s.storePath, snapshot{
		Records:     s.records,
		Patterns:    s.patterns,
		Corrections: s.corrections,
	})
}

// ExtractPattern maps a query to a coarse pattern key using a small
// fixed vocabulary of question-starters, falling back to "statement".
// Patterns are keys, not predictions.
func ExtractPattern(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "statement"
	}
	first := fields[0]
	switch first {
	case "what", "when", "where", "who", "why", "how", "is", "are", "can", "does":
		return first
	default:
		return "statement"
	}
}

func normalizeQuery(query string) string {
	return strings.TrimSpace(strings.ToLower(query))
}

// Record appends a feedback record, updates per-project tallies
// implicitly via the records list, and on an incorrect verdict with a
// correct project, updates the correction list and learned pattern for
// the query.
func (s *Store) Record(query, selectedProject string, confidence float64, verdict Verdict, correctProject, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{
		Query:           query,
		SelectedProject: selectedProject,
		Confidence:      confidence,
		UserFeedback:    verdict,
		CorrectProject:  correctProject,
		Timestamp:       time.Now(),
		SessionID:       sessionID,
	})
	if len(s.records) > s.maxHistory {
		s.records = s.records[len(s.records)-s.maxHistory:]
	}

	if verdict == VerdictIncorrect && correctProject != "" {
		key := normalizeQuery(query)
		s.corrections[key] = append(s.corrections[key], correctProject)

		patternKey := ExtractPattern(query)
		s.updatePattern(patternKey, correctProject)
	}

	s.persist()
}

func (s *Store) updatePattern(patternKey, correctProject string) {
	existing, ok := s.patterns[patternKey]
	if !ok {
		s.patterns[patternKey] = &Pattern{
			PatternKey:     patternKey,
			CorrectProject: correctProject,
			Confidence:     replaceResetConfidence,
			FeedbackCount:  1,
			LastUpdated:    time.Now(),
		}
		return
	}

	if existing.CorrectProject == correctProject {
		existing.FeedbackCount++
		existing.Confidence = minFloat(existing.Confidence+reinforcementStep, maxConfidence)
		existing.LastUpdated = time.Now()
		return
	}

	if existing.FeedbackCount <= replaceThreshold {
		existing.CorrectProject = correctProject
		existing.FeedbackCount = 1
		existing.Confidence = replaceResetConfidence
		existing.LastUpdated = time.Now()
	}
	// Otherwise leave untouched: the pattern has accumulated enough
	// evidence to resist a single contrary vote.
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func mostCommon(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	var best string
	bestCount := -1
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}

// Adjust applies the learned-correction rule cascade to a base routing
// decision, returning the first rule that fires.
func (s *Store) Adjust(query, baseProject string, baseConfidence float64) (project string, confidence float64, reasoning string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeQuery(query)

	if corrections, ok := s.corrections[key]; ok && float64(len(corrections)) >= s.learningThreshold {
		return mostCommon(corrections), exactCorrectionConfidence, "learned correction for this exact query"
	}

	patternKey := ExtractPattern(query)
	if pattern, ok := s.patterns[patternKey]; ok && float64(pattern.FeedbackCount) >= s.learningThreshold {
		return pattern.CorrectProject, pattern.Confidence, "learned pattern match"
	}

	queryWords := wordSet(query)
	bestRatio := 0.0
	var bestCorrections []string
	for pastQuery, corrections := range s.corrections {
		ratio := overlapRatio(queryWords, wordSet(pastQuery))
		if ratio > similarQueryOverlapThreshold && ratio > bestRatio {
			bestRatio, bestCorrections = ratio, corrections
		}
	}
	if bestCorrections != nil {
		return mostCommon(bestCorrections), baseConfidence * bestRatio, "similar past query correction"
	}

	return baseProject, baseConfidence, ""
}

// Clear discards every recorded record, correction, and pattern.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.patterns = make(map[string]*Pattern)
	s.corrections = make(map[string][]string)
	s.persist()
}
