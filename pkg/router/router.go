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

// Package router is the central decision-maker: it combines the
// project registry, routing cache, conversation context, feedback
// store, analytics, and LLM client into a single routing decision per
// query.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/projectrouter/core/pkg/analytics"
	"github.com/projectrouter/core/pkg/cache"
	"github.com/projectrouter/core/pkg/convcontext"
	"github.com/projectrouter/core/pkg/feedback"
	"github.com/projectrouter/core/pkg/llmclient"
	"github.com/projectrouter/core/pkg/project"
	"github.com/projectrouter/core/pkg/rerrors"
	"github.com/projectrouter/core/pkg/routing"
)

const (
	fallbackInvalidSelectionConfidence = 0.3
	fallbackTransportConfidence        = 0.5
)

// Router owns the cache, context, feedback store, analytics, and LLM
// client by reference; it holds only a read-only view of the project
// registry.
type Router struct {
	registry  *project.Registry
	cache     *cache.Cache
	context   convcontext.Context
	feedback  *feedback.Store
	analytics *analytics.Analytics
	llm       llmclient.Provider
	logger    *slog.Logger

	manual atomic.Pointer[string]
}

// New builds a Router from its collaborators. context, feedbackStore,
// analyticsStore, and llm may be nil; a nil collaborator disables the
// step it backs (no boost, no learned adjustment, no metric, no LLM
// call respectively) rather than panicking.
func New(registry *project.Registry, routingCache *cache.Cache, convCtx convcontext.Context, feedbackStore *feedback.Store, analyticsStore *analytics.Analytics, llm llmclient.Provider, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		registry:  registry,
		cache:     routingCache,
		context:   convCtx,
		feedback:  feedbackStore,
		analytics: analyticsStore,
		llm:       llm,
		logger:    logger,
	}
}

// SetManual pins routing to projectName regardless of the LLM or
// cache, provided the project is enabled at Route time.
func (r *Router) SetManual(projectName string) {
	r.manual.Store(&projectName)
}

// ClearManual returns the router to automatic mode.
func (r *Router) ClearManual() {
	r.manual.Store(nil)
}

// Route decides which project should answer query. It never returns
// an error unless no project is currently enabled.
func (r *Router) Route(ctx context.Context, query routing.Query) (routing.Decision, error) {
	start := time.Now()

	if pinned := r.manual.Load(); pinned != nil {
		if p, ok := r.registry.Get(*pinned); ok && p.Enabled() {
			decision := routing.Decision{
				ProjectName:   p.Name,
				Confidence:    1.0,
				Reasoning:     "manual selection",
				Timestamp:     time.Now(),
				RoutingTimeMs: time.Since(start).Milliseconds(),
			}
			r.finish(query, decision, false, true, "")
			return decision, nil
		}
	}

	enabled := r.registry.ListEnabled()
	if len(enabled) == 0 {
		return routing.Decision{}, rerrors.Routing("router", "no project is enabled")
	}

	if len(enabled) == 1 {
		decision := routing.Decision{
			ProjectName:   enabled[0].Name,
			Confidence:    1.0,
			Reasoning:     "only one available",
			Timestamp:     time.Now(),
			RoutingTimeMs: time.Since(start).Milliseconds(),
		}
		r.finish(query, decision, false, true, "")
		return decision, nil
	}

	enabledNames := make([]string, len(enabled))
	for i, p := range enabled {
		enabledNames[i] = p.Name
	}

	if r.cache != nil {
		if entry, ok := r.cache.Get(query.Text, enabledNames); ok {
			decision := entry.Decision
			decision.FromCache = true
			decision.Reasoning += " (from cache)"
			decision.RoutingTimeMs = time.Since(start).Milliseconds()
			r.finish(query, decision, true, true, "")
			return decision, nil
		}
	}

	decision, degraded, errMsg := r.routeViaLLM(ctx, query, enabled, enabledNames)
	decision.RoutingTimeMs = time.Since(start).Milliseconds()
	r.finish(query, decision, false, !degraded, errMsg)
	return decision, nil
}

func (r *Router) routeViaLLM(ctx context.Context, query routing.Query, enabled []*project.Project, enabledNames []string) (routing.Decision, bool, string) {
	if r.llm == nil {
		return r.fallbackDecision(enabled, fallbackTransportConfidence, "no LLM client configured"), true, "no LLM client configured"
	}

	var summary convcontext.Summary
	if r.context != nil {
		summary = r.context.Summary()
	}

	prompt := buildRoutingPrompt(query.Text, enabled, summary)
	text, err := r.llm.Call(ctx, prompt)
	if err != nil {
		return r.fallbackDecision(enabled, fallbackTransportConfidence, err.Error()), true, err.Error()
	}

	parsed := parseRoutingResponse(text)
	var decision routing.Decision
	if !parsed.ok || !containsProject(enabledNames, parsed.project) {
		decision = r.fallbackDecision(enabled, fallbackInvalidSelectionConfidence, "")
	} else {
		decision = routing.Decision{
			ProjectName:         parsed.project,
			Confidence:          routing.ClampConfidence(parsed.confidence),
			Reasoning:           parsed.reasoning,
			AlternativeProjects: parsed.alternatives,
			Timestamp:           time.Now(),
		}
	}

	// Step 5: feedback adjustment happens before the context boost.
	if r.feedback != nil {
		adjProject, adjConfidence, adjReasoning := r.feedback.Adjust(query.Text, decision.ProjectName, decision.Confidence)
		if adjProject != decision.ProjectName {
			decision.Reasoning = fmt.Sprintf("%s; Original: %s", adjReasoning, decision.Reasoning)
			decision.ProjectName = adjProject
			decision.Confidence = adjConfidence
		}
	}

	// Step 6: conversation-context boost.
	if r.context != nil {
		boost, reason := r.context.Boost(query.Text, decision.ProjectName)
		if boost > 0 {
			decision.Confidence = routing.ClampConfidence(decision.Confidence + boost)
			if reason != "" {
				decision.Reasoning = decision.Reasoning + "; " + reason
			}
		}
	}

	// Step 7: cache insert with dependencies = capabilities in the
	// prompt union the selected project name.
	if r.cache != nil {
		r.cache.Put(query.Text, enabledNames, decision, dependenciesInPrompt(enabled, decision.ProjectName))
	}

	return decision, false, ""
}

func containsProject(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (r *Router) fallbackDecision(enabled []*project.Project, confidence float64, errMsg string) routing.Decision {
	reasoning := "fallback"
	if errMsg != "" {
		reasoning = fmt.Sprintf("fallback: %s", errMsg)
	}
	return routing.Decision{
		ProjectName: enabled[0].Name,
		Confidence:  confidence,
		Reasoning:   reasoning,
		Timestamp:   time.Now(),
	}
}

// finish appends the decision to conversation context (step 8) and
// records a routing metric (step 9).
func (r *Router) finish(query routing.Query, decision routing.Decision, cacheHit, success bool, errMsg string) {
	if r.context != nil {
		r.context.Add(query.Text, decision.ProjectName, decision.Confidence)
	}
	if r.analytics == nil {
		return
	}
	mode := analytics.ModeAutomatic
	if pinned := r.manual.Load(); pinned != nil && *pinned == decision.ProjectName {
		mode = analytics.ModeManual
	}
	r.analytics.Record(analytics.Metric{
		Timestamp:       time.Now(),
		Query:           query.Text,
		ProjectSelected: decision.ProjectName,
		Confidence:      decision.Confidence,
		RoutingTimeMs:   decision.RoutingTimeMs,
		CacheHit:        cacheHit,
		Mode:            mode,
		Reasoning:       decision.Reasoning,
		Alternatives:    decision.AlternativeProjects,
		Success:         success,
		Error:           errMsg,
	})
}

// Registry exposes the underlying project registry for orchestrator
// resolution and administrative enable/disable calls.
func (r *Router) Registry() *project.Registry { return r.registry }

// LLM exposes the router's LLM client so an Orchestrator can reuse it
// for analysis and synthesis calls without constructing its own.
func (r *Router) LLM() llmclient.Provider { return r.llm }
