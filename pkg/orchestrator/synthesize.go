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
)

func buildSynthesisPrompt(query string, subs []SubQuery) string {
	var b strings.Builder
	b.WriteString("Original question: ")
	b.WriteString(query)
	b.WriteString("\n\nSub-query results:\n")
	for _, sq := range subs {
		if sq.State == StateCompleted {
			fmt.Fprintf(&b, "- %s (%q): %s\n", sq.ProjectName, sq.Text, sq.Result)
		} else {
			fmt.Fprintf(&b, "- %s (%q): FAILED: %s\n", sq.ProjectName, sq.Text, sq.Error)
		}
	}
	b.WriteString("\nWrite one coherent answer to the original question that integrates every successful result and acknowledges any failures.\n")
	return b.String()
}

// fallbackSynthesis concatenates each completed sub-query's result as
// "**project**: result" (and each other sub-query as
// "**project**: (failed: error)") joined by blank lines, used when the
// synthesis LLM call fails or returns only whitespace.
func fallbackSynthesis(subs []SubQuery) string {
	var parts []string
	for _, sq := range subs {
		if sq.State == StateCompleted {
			parts = append(parts, fmt.Sprintf("**%s**: %s", sq.ProjectName, sq.Result))
		} else {
			parts = append(parts, fmt.Sprintf("**%s**: (failed: %s)", sq.ProjectName, sq.Error))
		}
	}
	return strings.Join(parts, "\n\n")
}

func synthesize(ctx context.Context, provider llmclient.Provider, query string, subs []SubQuery) (answer string, fellBack bool) {
	prompt := buildSynthesisPrompt(query, subs)
	text, err := provider.Call(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return fallbackSynthesis(subs), true
	}
	return text, false
}
