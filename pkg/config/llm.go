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

package config

import (
	"fmt"
	"os"
)

// LLMProviderType identifies the wire protocol an LLM endpoint speaks.
type LLMProviderType string

const (
	LLMProviderAnthropic LLMProviderType = "anthropic"
	LLMProviderOpenAI    LLMProviderType = "openai"
	LLMProviderOllama    LLMProviderType = "ollama"
	LLMProviderArgo      LLMProviderType = "argo"
)

// LLMProviderConfig configures a single LLM endpoint used either as a
// project's executor backend or as the router's classifier model.
type LLMProviderConfig struct {
	// Provider selects the wire protocol (anthropic, openai, ollama, argo).
	Provider LLMProviderType `yaml:"provider,omitempty"`

	// Model is the model identifier sent on each request.
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates the request. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default endpoint. Required for
	// ollama and argo, which have no well-known public endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature controls sampling randomness.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxTokens bounds the length of a single completion.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// TimeoutSeconds bounds each HTTP attempt; every retry gets its own
	// timeout, so a call with retries can take longer in total.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// SetDefaults fills in provider, model, API key, and request shape
// defaults not already set explicitly or via the environment.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = detectProviderFromEnv()
	}
	if c.Model == "" {
		switch c.Provider {
		case LLMProviderAnthropic:
			c.Model = "claude-sonnet-4-20250514"
		case LLMProviderOpenAI:
			c.Model = "gpt-4o"
		case LLMProviderOllama:
			c.Model = "llama3.2"
		case LLMProviderArgo:
			c.Model = "gpt-4o"
		}
	}
	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey(string(c.Provider))
	}
	if c.Temperature == nil {
		temp := 0.2
		c.Temperature = &temp
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
}

// Validate checks that the provider configuration is usable.
func (c *LLMProviderConfig) Validate() error {
	validProviders := map[LLMProviderType]bool{
		LLMProviderAnthropic: true,
		LLMProviderOpenAI:    true,
		LLMProviderOllama:    true,
		LLMProviderArgo:      true,
	}
	if c.Provider != "" && !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (valid: anthropic, openai, ollama, argo)", c.Provider)
	}
	if (c.Provider == LLMProviderOllama || c.Provider == LLMProviderArgo) && c.BaseURL == "" {
		return fmt.Errorf("base_url is required for provider %q", c.Provider)
	}
	if c.Provider == LLMProviderAnthropic || c.Provider == LLMProviderOpenAI {
		if c.APIKey == "" {
			return fmt.Errorf("api_key is required for provider %q", c.Provider)
		}
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

func detectProviderFromEnv() LLMProviderType {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return LLMProviderAnthropic
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return LLMProviderOpenAI
	}
	return LLMProviderAnthropic
}
