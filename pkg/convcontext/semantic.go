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

package convcontext

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/projectrouter/core/pkg/embedding"
)

const (
	maxClusters              = 5
	centroidAlpha            = 0.3
	defaultTopicSimilarity   = 0.6
	defaultSimilarityThreshold = 0.75
	currentTopicWindow       = 5 * time.Minute
	similarQueryBoost        = 0.15
	topKSimilarForConsensus  = 3
	minMatchesForConsensus   = 2
)

// Cluster groups conversation queries whose embeddings are close
// together, tracking the dominant project among its members.
type Cluster struct {
	Centroid        []float32
	Members         []Query
	DominantProject string
	Confidence      float64
	LastUpdated     time.Time
}

// Semantic tracks conversation state via incremental embedding
// clustering, matching spec.md's centroid-update and boost formulas.
type Semantic struct {
	mu                  sync.Mutex
	embedder            embedding.Embedder
	maxHistory          int
	topicThreshold      float64
	similarityThreshold float64
	clusters            []*Cluster
	history             []Query
}

// NewSemantic builds a Semantic tracker. topicThreshold defaults to 0.6
// when zero or negative; similarityThreshold (the absolute cosine-
// similarity floor a past query must clear to count toward
// topSimilarMatches consensus) defaults to 0.75 when zero or negative.
func NewSemantic(embedder embedding.Embedder, maxHistory int, topicThreshold, similarityThreshold float64) *Semantic {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if topicThreshold <= 0 {
		topicThreshold = defaultTopicSimilarity
	}
	if similarityThreshold <= 0 {
		similarityThreshold = defaultSimilarityThreshold
	}
	return &Semantic{embedder: embedder, maxHistory: maxHistory, topicThreshold: topicThreshold, similarityThreshold: similarityThreshold}
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func updateCentroid(centroid, x []float32) []float32 {
	updated := make([]float32, len(centroid))
	for i := range centroid {
		xi := float32(0)
		if i < len(x) {
			xi = x[i]
		}
		updated[i] = float32((1-centroidAlpha)*float64(centroid[i]) + centroidAlpha*float64(xi))
	}
	return updated
}

func (s *Semantic) Add(queryText, project string, confidence float64) {
	vec, err := s.embedder.Embed(context.Background(), queryText)
	if err != nil {
		vec = nil
	}

	q := Query{Text: queryText, Project: project, Confidence: confidence, Timestamp: time.Now(), Embedding: vec}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, q)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}

	if vec == nil {
		return
	}

	var best *Cluster
	bestSim := -1.0
	for _, c := range s.clusters {
		sim := cosineSimilarity(c.Centroid, vec)
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}

	if best != nil && bestSim >= s.topicThreshold {
		best.Centroid = updateCentroid(best.Centroid, vec)
		best.Members = append(best.Members, q)
		best.LastUpdated = time.Now()
		best.DominantProject, best.Confidence = dominantProject(best.Members)
		return
	}

	newCluster := &Cluster{
		Centroid:        vec,
		Members:         []Query{q},
		DominantProject: project,
		Confidence:      confidence,
		LastUpdated:     time.Now(),
	}
	s.clusters = append(s.clusters, newCluster)
	if len(s.clusters) > maxClusters {
		s.evictOldest()
	}
}

func dominantProject(members []Query) (string, float64) {
	counts := make(map[string]int)
	for _, m := range members {
		counts[m.Project]++
	}
	var best string
	bestCount := -1
	for project, count := range counts {
		if count > bestCount {
			best, bestCount = project, count
		}
	}
	return best, float64(bestCount) / float64(len(members))
}

func (s *Semantic) evictOldest() {
	oldestIdx := 0
	for i, c := range s.clusters {
		if c.LastUpdated.Before(s.clusters[oldestIdx].LastUpdated) {
			oldestIdx = i
		}
	}
	s.clusters = append(s.clusters[:oldestIdx], s.clusters[oldestIdx+1:]...)
}

// currentCluster returns the cluster with the newest LastUpdated,
// provided that timestamp falls within the last currentTopicWindow.
func (s *Semantic) currentCluster() *Cluster {
	if len(s.clusters) == 0 {
		return nil
	}
	newest := s.clusters[0]
	for _, c := range s.clusters[1:] {
		if c.LastUpdated.After(newest.LastUpdated) {
			newest = c
		}
	}
	if time.Since(newest.LastUpdated) > currentTopicWindow {
		return nil
	}
	return newest
}

func (s *Semantic) Boost(queryText, candidateProject string) (float64, string) {
	vec, err := s.embedder.Embed(context.Background(), queryText)
	if err != nil {
		return 0, ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.currentCluster(); current != nil {
		sim := cosineSimilarity(current.Centroid, vec)
		if current.DominantProject == candidateProject && sim >= s.topicThreshold {
			return 0.2 * sim, "matches current topic cluster"
		}
	}

	if matches := s.topSimilarMatches(vec, candidateProject); matches >= minMatchesForConsensus {
		return similarQueryBoost, "used by most similar recent queries"
	}

	return 0, ""
}

func (s *Semantic) topSimilarMatches(vec []float32, candidateProject string) int {
	type scored struct {
		sim     float64
		project string
	}
	var all []scored
	for _, q := range s.history {
		if q.Embedding == nil {
			continue
		}
		sim := cosineSimilarity(q.Embedding, vec)
		if sim < s.similarityThreshold {
			continue
		}
		all = append(all, scored{sim: sim, project: q.Project})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].sim > all[j].sim })

	top := all
	if len(top) > topKSimilarForConsensus {
		top = top[:topKSimilarForConsensus]
	}
	matches := 0
	for _, s := range top {
		if s.project == candidateProject {
			matches++
		}
	}
	return matches
}

func (s *Semantic) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := append([]Query(nil), s.history...)
	current := s.currentCluster()
	if current == nil {
		return Summary{RecentQueries: recent}
	}
	return Summary{RecentQueries: recent, ActiveTopic: current.DominantProject, HasTopic: true}
}

func (s *Semantic) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.clusters = nil
}
