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

	"golang.org/x/sync/errgroup"

	"github.com/projectrouter/core/pkg/project"
)

// Resolver looks up the Executor for an enabled project by name. The
// orchestrator never performs capability work itself; execution is
// always delegated through a Resolver supplied by Run's caller.
type Resolver func(projectName string) (project.Executor, bool)

// runStages executes a Plan's sub-queries stage by stage, respecting
// execution_order, with each stage bounded to maxParallel concurrent
// sub-queries. Failed sub-queries do not block other stages.
func runStages(ctx context.Context, plan *Plan, resolve Resolver, maxParallel int) [][]int {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	stages, warnings := buildStages(plan.SubQueries)
	plan.Warnings = append(plan.Warnings, warnings...)

	for _, stage := range stages {
		runStage(ctx, plan, stage, resolve, maxParallel)
	}
	return stages
}

func runStage(ctx context.Context, plan *Plan, stage []int, resolve Resolver, maxParallel int) {
	group, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for _, idx := range stage {
		idx := idx
		group.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			runSubQuery(groupCtx, &plan.SubQueries[idx], resolve)
			return nil
		})
	}

	// errgroup.Wait's error is always nil here: runSubQuery records
	// failures on the sub-query itself rather than returning an error,
	// so one sub-query's failure never cancels its stage-mates.
	_ = group.Wait()
}

func runSubQuery(ctx context.Context, sq *SubQuery, resolve Resolver) {
	sq.State = StateInProgress

	executor, ok := resolve(sq.ProjectName)
	if !ok {
		sq.State = StateFailed
		sq.Error = fmt.Sprintf("project %q is not available", sq.ProjectName)
		return
	}

	result, err := executor.Execute(ctx, sq.Text)
	if err != nil {
		sq.State = StateFailed
		sq.Error = err.Error()
		return
	}

	sq.Result = result
	sq.State = StateCompleted
}
