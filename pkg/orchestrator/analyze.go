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

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/projectrouter/core/pkg/llmclient"
	"github.com/projectrouter/core/pkg/rerrors"
)

// ProjectDescriptor is the minimal view of a project the analysis
// prompt needs; it mirrors the subset of project.Project used when
// composing the router's own prompt.
type ProjectDescriptor struct {
	Name        string
	Description string
}

func buildAnalysisPrompt(query string, projects []ProjectDescriptor) string {
	var b strings.Builder
	b.WriteString("You are deciding whether a user query spans multiple independent projects.\n\n")
	b.WriteString("Available projects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Description)
	}
	b.WriteString("\nUser query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString("If the query only needs one project, reply with exactly:\nMULTI_PROJECT: no\n\n")
	b.WriteString("If the query needs more than one project, reply with:\nMULTI_PROJECT: yes\n")
	b.WriteString("followed by one line per distinct sub-question, in the form:\nPROJECT_NAME: sub-query text\n")
	return b.String()
}

// analyze calls the LLM to decompose query into sub-queries, validates
// each referenced project against enabledProjects, and discards
// invalid lines. A transport failure yields a non-multi-project plan
// with no sub-queries and an OrchestrationError. A response that
// declares itself multi-project but yields no usable sub-query is
// treated the same way: orchestration was explicitly requested, so the
// parse failure must surface rather than degrade silently.
func analyze(ctx context.Context, provider llmclient.Provider, query string, projects []ProjectDescriptor) (Plan, error) {
	enabled := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		enabled[p.Name] = struct{}{}
	}

	prompt := buildAnalysisPrompt(query, projects)
	text, err := provider.Call(ctx, prompt)
	if err != nil {
		return Plan{IsMultiProject: false}, rerrors.Orchestration("orchestrator", "analysis request failed", err)
	}

	isMulti, subQueries := parseAnalysis(text, enabled)
	if isMulti && len(subQueries) == 0 {
		return Plan{IsMultiProject: false}, rerrors.Orchestration("orchestrator", "analysis declared multi-project but no sub-query could be parsed", nil)
	}
	if len(subQueries) <= 1 {
		isMulti = false
	}

	plan := Plan{IsMultiProject: isMulti, SubQueries: subQueries}
	if isMulti {
		detectDependencies(plan.SubQueries)
	}
	return plan, nil
}

func parseAnalysis(text string, enabled map[string]struct{}) (bool, []SubQuery) {
	lines := strings.Split(text, "\n")
	isMulti := false
	var subs []SubQuery
	index := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "MULTI_PROJECT:") {
			value := strings.TrimSpace(line[len("MULTI_PROJECT:"):])
			isMulti = strings.EqualFold(value, "yes")
			continue
		}

		colon := strings.Index(line, ":")
		if colon <= 0 {
			continue
		}
		project := strings.TrimSpace(line[:colon])
		subQueryText := strings.TrimSpace(line[colon+1:])
		if subQueryText == "" {
			continue
		}
		if _, ok := enabled[project]; !ok {
			continue
		}

		subs = append(subs, SubQuery{
			Index:       index,
			ProjectName: project,
			Text:        subQueryText,
			State:       StatePending,
		})
		index++
	}

	return isMulti, subs
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "which": {}, "have": {}, "has": {}, "will": {}, "would": {},
	"can": {}, "could": {}, "should": {}, "may": {}, "a": {}, "an": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "is": {}, "are": {}, "my": {},
}

func significantWords(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func intersectionSize(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// detectDependencies marks sub-query i dependent on an earlier
// sub-query j when their significant-word sets intersect in at least
// two words. Only backward edges are added, so the resulting graph is
// acyclic by construction.
func detectDependencies(subs []SubQuery) {
	wordSets := make([]map[string]struct{}, len(subs))
	for i, sq := range subs {
		wordSets[i] = significantWords(sq.Text)
	}

	for i := range subs {
		for j := 0; j < i; j++ {
			if intersectionSize(wordSets[i], wordSets[j]) >= 2 {
				subs[i].DependsOn = append(subs[i].DependsOn, j)
			}
		}
	}
}
