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

package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/projectrouter/core/internal/httpclient"
	"github.com/projectrouter/core/pkg/config"
	"github.com/projectrouter/core/pkg/rerrors"
)

// openAICompatProvider implements Provider for any endpoint speaking the
// OpenAI chat-completions wire format: OpenAI itself, Ollama's OpenAI
// compatibility surface, and an Argo gateway.
type openAICompatProvider struct {
	cfg       config.LLMProviderConfig
	transport *httpclient.Client
	endpoint  string
}

func newOpenAICompatProvider(cfg config.LLMProviderConfig, transport *httpclient.Client, endpoint string) *openAICompatProvider {
	return &openAICompatProvider{cfg: cfg, transport: transport, endpoint: endpoint}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []chatChoice  `json:"choices"`
	Error   *chatAPIError `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (p *openAICompatProvider) ModelName() string { return p.cfg.Model }

func (p *openAICompatProvider) Call(ctx context.Context, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: *p.cfg.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", rerrors.Provider("llmclient.openai_compat", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", rerrors.Transport("llmclient.openai_compat", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.transport.Do(httpReq)
	if err != nil {
		return "", rerrors.Transport("llmclient.openai_compat", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", rerrors.Transport("llmclient.openai_compat", "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", rerrors.Provider("llmclient.openai_compat", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", rerrors.Provider("llmclient.openai_compat", "malformed response body", err)
	}
	if parsed.Error != nil {
		return "", rerrors.Provider("llmclient.openai_compat", parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", rerrors.Provider("llmclient.openai_compat", "response contained no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}
