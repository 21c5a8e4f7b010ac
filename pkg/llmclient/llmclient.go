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

// Package llmclient provides a minimal, provider-agnostic LLM adapter.
//
// Each Provider is a single-call text-in/text-out client constructed
// directly from a config.LLMProviderConfig. Providers hold no shared or
// process-wide state and are never looked up through a registry — the
// router and orchestrator hold direct references, so routing can occur
// before any project-specific client exists.
package llmclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/projectrouter/core/internal/httpclient"
	"github.com/projectrouter/core/pkg/config"
	"github.com/projectrouter/core/pkg/rerrors"
)

// Provider answers a single prompt with generated text.
type Provider interface {
	// Call sends prompt to the model and returns its text completion.
	// MaxTokens and Temperature from the provider's configuration bound
	// every call; ctx's deadline, if any, is honored by the underlying
	// transport.
	Call(ctx context.Context, prompt string) (string, error)

	// ModelName reports the configured model identifier.
	ModelName() string
}

// New constructs a Provider for cfg's provider type. It returns a
// *rerrors.Error of KindConfig when cfg fails validation (missing
// required fields) or names no supported provider, including an empty
// provider name; otherwise it never fails.
func New(cfg config.LLMProviderConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, rerrors.Config("llmclient", "invalid provider configuration", err)
	}

	transport := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}),
		httpclient.WithLogger(logger),
	)

	switch cfg.Provider {
	case config.LLMProviderAnthropic:
		return newAnthropicProvider(cfg, transport), nil
	case config.LLMProviderOpenAI:
		endpoint := "https://api.openai.com/v1/chat/completions"
		if cfg.BaseURL != "" {
			endpoint = cfg.BaseURL + "/chat/completions"
		}
		return newOpenAICompatProvider(cfg, transport, endpoint), nil
	case config.LLMProviderOllama:
		return newOpenAICompatProvider(cfg, transport, cfg.BaseURL+"/v1/chat/completions"), nil
	case config.LLMProviderArgo:
		return newOpenAICompatProvider(cfg, transport, cfg.BaseURL+"/chat/completions"), nil
	default:
		return nil, rerrors.Config("llmclient", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}
