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

// Package orchestrator decomposes multi-project queries into
// sub-queries, runs them with bounded concurrency respecting their
// dependency order, and synthesizes a combined answer.
package orchestrator

import "time"

// SubQueryState is the state-machine position of one sub-query.
type SubQueryState string

const (
	StatePending     SubQueryState = "pending"
	StateInProgress  SubQueryState = "in_progress"
	StateCompleted   SubQueryState = "completed"
	StateFailed      SubQueryState = "failed"
	StateSkipped     SubQueryState = "skipped"
)

// SubQuery is one project-scoped piece of a decomposed query.
type SubQuery struct {
	Index       int           `json:"index"`
	ProjectName string        `json:"project_name"`
	Text        string        `json:"text"`
	DependsOn   []int         `json:"depends_on"`
	State       SubQueryState `json:"state"`
	Result      string        `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Plan is the output of analyze(): whether the query is multi-project
// and, if so, its decomposition into sub-queries.
type Plan struct {
	IsMultiProject bool       `json:"is_multi_project"`
	SubQueries     []SubQuery `json:"sub_queries"`
	Warnings       []string   `json:"warnings,omitempty"`
}

// Result is the final outcome of running a Plan to completion.
type Result struct {
	Success          bool       `json:"success"`
	Answer           string     `json:"answer"`
	IndividualResults []SubQuery `json:"individual_results"`
	Stages           [][]int    `json:"stages"`
	Duration         time.Duration `json:"duration"`
	SynthesisFellBack bool      `json:"synthesis_fell_back"`
}
