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

package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/projectrouter/core/pkg/convcontext"
	"github.com/projectrouter/core/pkg/project"
)

const maxContextDecisionsInPrompt = 5

func buildRoutingPrompt(query string, projects []*project.Project, summary convcontext.Summary) string {
	var b strings.Builder
	b.WriteString("You are a routing assistant choosing which project best answers a user query.\n\n")
	b.WriteString("Available projects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Description)
		for _, c := range p.Capabilities {
			fmt.Fprintf(&b, "    capability: %s - %s\n", c.Name, c.Description)
		}
	}

	if len(summary.RecentQueries) > 0 {
		b.WriteString("\nRecent conversation:\n")
		recent := summary.RecentQueries
		if len(recent) > maxContextDecisionsInPrompt {
			recent = recent[len(recent)-maxContextDecisionsInPrompt:]
		}
		for _, q := range recent {
			fmt.Fprintf(&b, "- %q -> %s\n", q.Text, q.Project)
		}
		if summary.HasTopic {
			fmt.Fprintf(&b, "Active topic: %s\n", summary.ActiveTopic)
		}
	}

	fmt.Fprintf(&b, "\nUser query: %s\n\n", query)
	b.WriteString("Respond with exactly four lines:\n")
	b.WriteString("PROJECT: <project name>\n")
	b.WriteString("CONFIDENCE: <number between 0 and 1>\n")
	b.WriteString("REASONING: <short explanation>\n")
	b.WriteString("ALTERNATIVES: <comma-separated alternative project names, or none>\n")
	return b.String()
}

// dependenciesInPrompt returns the dependency tokens used for cache
// invalidation: every capability name listed in the prompt plus the
// selected project's own name.
func dependenciesInPrompt(projects []*project.Project, selectedProject string) []string {
	deps := []string{selectedProject}
	for _, p := range projects {
		for _, c := range p.Capabilities {
			deps = append(deps, c.Name)
		}
	}
	return deps
}

type parsedDecision struct {
	project      string
	confidence   float64
	reasoning    string
	alternatives []string
	ok           bool
}

// parseRoutingResponse parses the four labeled lines the routing
// prompt asks for. Missing or malformed fields yield ok=false so the
// caller can apply the fallback decision instead of raising.
func parseRoutingResponse(text string) parsedDecision {
	var d parsedDecision
	var haveProject, haveConfidence bool

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "PROJECT:"):
			d.project = strings.TrimSpace(line[strings.Index(line, ":")+1:])
			haveProject = d.project != ""
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			value := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				d.confidence = f
				haveConfidence = true
			}
		case strings.HasPrefix(upper, "REASONING:"):
			d.reasoning = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		case strings.HasPrefix(upper, "ALTERNATIVES:"):
			value := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			if !strings.EqualFold(value, "none") && value != "" {
				parts := strings.Split(value, ",")
				for _, p := range parts {
					if p = strings.TrimSpace(p); p != "" {
						d.alternatives = append(d.alternatives, p)
					}
				}
			}
		}
	}

	d.ok = haveProject && haveConfidence
	return d
}
