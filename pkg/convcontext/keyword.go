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
	"sync"
	"time"
)

const activeTopicWindow = 3

// DefaultContextConfidenceBoost is applied when the candidate project
// matches the session's active topic.
const DefaultContextConfidenceBoost = 0.2

// Keyword is the simple conversation-context tracker: it looks only at
// which project dominated the last few decisions.
type Keyword struct {
	mu         sync.Mutex
	maxHistory int
	boost      float64
	history    []Query
}

// NewKeyword builds a Keyword tracker bounded to maxHistory entries.
func NewKeyword(maxHistory int, boost float64) *Keyword {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if boost <= 0 {
		boost = DefaultContextConfidenceBoost
	}
	return &Keyword{maxHistory: maxHistory, boost: boost}
}

func (k *Keyword) Add(query, project string, confidence float64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.history = append(k.history, Query{
		Text:       query,
		Project:    project,
		Confidence: confidence,
		Timestamp:  time.Now(),
	})
	if len(k.history) > k.maxHistory {
		k.history = k.history[len(k.history)-k.maxHistory:]
	}
}

// activeTopic reports the project dominating the last activeTopicWindow
// decisions, if any single project accounts for all of them.
func (k *Keyword) activeTopic() (string, bool) {
	if len(k.history) < activeTopicWindow {
		return "", false
	}
	recent := k.history[len(k.history)-activeTopicWindow:]
	candidate := recent[0].Project
	for _, q := range recent[1:] {
		if q.Project != candidate {
			return "", false
		}
	}
	return candidate, true
}

func (k *Keyword) Boost(_ string, candidateProject string) (float64, string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	topic, ok := k.activeTopic()
	if !ok || topic != candidateProject {
		return 0, ""
	}
	return k.boost, "matches active conversation topic"
}

func (k *Keyword) Summary() Summary {
	k.mu.Lock()
	defer k.mu.Unlock()

	topic, ok := k.activeTopic()
	recent := append([]Query(nil), k.history...)
	return Summary{RecentQueries: recent, ActiveTopic: topic, HasTopic: ok}
}

func (k *Keyword) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.history = nil
}
