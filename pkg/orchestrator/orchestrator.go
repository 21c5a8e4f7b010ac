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
	"log/slog"
	"strings"
	"time"

	"github.com/projectrouter/core/pkg/analytics"
)

// Config controls sub-query concurrency.
type Config struct {
	MaxParallel int
}

// Orchestrator decomposes a multi-project query into sub-queries,
// executes them respecting their dependency order with bounded
// concurrency, and synthesizes a single answer. It holds a
// back-reference to the router's LLM client only for re-use; it never
// mutates router state, and it never performs capability work itself
// (that is always delegated through a Resolver).
type Orchestrator struct {
	cfg       Config
	provider  llmClient
	analytics *analytics.Analytics
	logger    *slog.Logger
}

// llmClient is the minimal subset of llmclient.Provider the
// orchestrator needs, kept local so tests can supply a stub without
// depending on pkg/llmclient's concrete providers.
type llmClient interface {
	Call(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// New builds an Orchestrator. analyticsStore may be nil, disabling
// per-sub-query and top-level metric recording. logger defaults to a
// discard handler when nil.
func New(cfg Config, provider llmClient, analyticsStore *analytics.Analytics, logger *slog.Logger) *Orchestrator {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 3
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{cfg: cfg, provider: provider, analytics: analyticsStore, logger: logger}
}

// Analyze decomposes query into an OrchestrationPlan. It returns an
// OrchestrationError, alongside a non-multi-project plan with no
// sub-queries, when the analysis call fails or when the LLM's response
// declares itself multi-project but no sub-query can be parsed from it.
func (o *Orchestrator) Analyze(ctx context.Context, query string, projects []ProjectDescriptor) (Plan, error) {
	return analyze(ctx, o.provider, query, projects)
}

// Run executes a Plan to completion: stage-by-stage bounded-parallel
// execution followed by synthesis (or its fallback). Returns a Result
// describing the combined answer and the per-sub-query outcomes. Every
// sub-query, plus the original query itself, is recorded as one
// analytics.Metric when an analytics store is configured.
func (o *Orchestrator) Run(ctx context.Context, query string, plan Plan, resolve Resolver) Result {
	start := time.Now()

	stages := runStages(ctx, &plan, resolve, o.cfg.MaxParallel)
	for _, w := range plan.Warnings {
		o.logger.Warn("orchestrator dependency warning", "warning", w)
	}

	answer, fellBack := synthesize(ctx, o.provider, query, plan.SubQueries)

	result := Result{
		Success:           true,
		Answer:            answer,
		IndividualResults: plan.SubQueries,
		Stages:            stages,
		Duration:          time.Since(start),
		SynthesisFellBack: fellBack,
	}

	o.recordMetrics(query, result)
	return result
}

func (o *Orchestrator) recordMetrics(query string, result Result) {
	if o.analytics == nil {
		return
	}

	projects := make([]string, 0, len(result.IndividualResults))
	allSucceeded := true
	for _, sq := range result.IndividualResults {
		success := sq.State == StateCompleted
		if !success {
			allSucceeded = false
		}
		projects = append(projects, sq.ProjectName)
		o.analytics.Record(analytics.Metric{
			Timestamp:       time.Now(),
			Query:           sq.Text,
			ProjectSelected: sq.ProjectName,
			Mode:            analytics.ModeAutomatic,
			Success:         success,
			Error:           sq.Error,
		})
	}

	o.analytics.Record(analytics.Metric{
		Timestamp:       time.Now(),
		Query:           query,
		ProjectSelected: strings.Join(projects, ","),
		RoutingTimeMs:   result.Duration.Milliseconds(),
		Mode:            analytics.ModeAutomatic,
		Success:         result.Success && allSucceeded,
	})
}
