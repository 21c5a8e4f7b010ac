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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/projectrouter/core/pkg/config"
	"github.com/projectrouter/core/pkg/llmclient"
	"github.com/projectrouter/core/pkg/project"
)

// llmExecutor answers a project's queries by calling a single LLM
// provider with a prompt that names the project. It is the default
// Executor wired up for every discovered project when no more
// specialized integration is configured; a real deployment would
// supply its own project.ExecutorFactory instead.
type llmExecutor struct {
	projectName string
	provider    llmclient.Provider
}

func (e *llmExecutor) Execute(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf("You are the %q project. Answer this question:\n\n%s", e.projectName, query)
	return e.provider.Call(ctx, prompt)
}

// newExecutorFactory builds a project.ExecutorFactory that gives every
// discovered project an llmExecutor backed by the provider registered
// under its own name in cfg.API.Providers, falling back to the
// classifier's provider when no per-project entry exists.
func newExecutorFactory(cfg *config.Config, logger *slog.Logger) project.ExecutorFactory {
	return func(name, dir string) (project.Executor, error) {
		providerCfg, ok := cfg.API.Providers[name]
		if !ok {
			providerCfg = cfg.Models.Classifier
		}
		provider, err := llmclient.New(providerCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("build executor for project %q: %w", name, err)
		}
		return &llmExecutor{projectName: name, provider: provider}, nil
	}
}
